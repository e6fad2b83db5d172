package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"clinician-dashboard-be/internal/repository/contract"
)

// GetJSON decodes the value stored under key into out.
func GetJSON(ctx context.Context, kv contract.IKeyValueRepository, key string, out interface{}) (bool, error) {
	raw, found, err := kv.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, kv contract.IKeyValueRepository, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, raw)
}
