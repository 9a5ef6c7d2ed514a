package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/stock-ledger/internal/port"
)

const (
	idempotencyKeyPrefix = "idempotency:"
	nameKeyPrefix        = "name:"
	idempotencyKeyTTL    = 24 * time.Hour
	nameTTL              = 10 * time.Minute
)

type RedisAdapter struct {
	client *redis.Client
}

var (
	_ port.IdempotencyGuard = (*RedisAdapter)(nil)
	_ port.NameCache        = (*RedisAdapter)(nil)
)

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func (r *RedisAdapter) GetName(ctx context.Context, kind, id string) (string, bool, error) {
	name, err := r.client.Get(ctx, nameKeyPrefix+kind+":"+id).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

func (r *RedisAdapter) SetName(ctx context.Context, kind, id, name string) error {
	return r.client.Set(ctx, nameKeyPrefix+kind+":"+id, name, nameTTL).Err()
}
