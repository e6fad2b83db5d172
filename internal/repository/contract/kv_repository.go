package contract

import "context"

// IKeyValueRepository is the durable key-value storage the dashboard keeps its
// tab list, stabilized chat dates and cached analyses in. Values are JSON.
type IKeyValueRepository interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
