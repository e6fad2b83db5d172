package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

type KeyValueRepository struct {
	cache *cache.Cache
}

// NewKeyValueRepository keeps values for the process lifetime; nothing expires.
func NewKeyValueRepository() *KeyValueRepository {
	return &KeyValueRepository{
		cache: cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

func (r *KeyValueRepository) Get(_ context.Context, key string) ([]byte, bool, error) {
	if x, found := r.cache.Get(key); found {
		return append([]byte(nil), x.([]byte)...), true, nil
	}
	return nil, false, nil
}

func (r *KeyValueRepository) Set(_ context.Context, key string, value []byte) error {
	r.cache.Set(key, append([]byte(nil), value...), cache.NoExpiration)
	return nil
}

func (r *KeyValueRepository) Delete(_ context.Context, key string) error {
	r.cache.Delete(key)
	return nil
}
