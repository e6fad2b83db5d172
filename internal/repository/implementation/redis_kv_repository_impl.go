package implementation

import (
	"context"
	"errors"

	"clinician-dashboard-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "dashboard:"

type RedisKeyValueRepositoryImpl struct {
	rdb *redis.Client
}

func NewRedisKeyValueRepository(rdb *redis.Client) contract.IKeyValueRepository {
	return &RedisKeyValueRepositoryImpl{rdb: rdb}
}

func (r *RedisKeyValueRepositoryImpl) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *RedisKeyValueRepositoryImpl) Set(ctx context.Context, key string, value []byte) error {
	return r.rdb.Set(ctx, redisKeyPrefix+key, value, 0).Err()
}

func (r *RedisKeyValueRepositoryImpl) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, redisKeyPrefix+key).Err()
}
