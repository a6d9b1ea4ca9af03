// File: services/scheduler/registry.go
package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"schedulai/models"

	"github.com/go-redis/redis/v8"
)

const idempotencyPrefix = "booking:token:"

// TokenRegistry remembers completed bookings by idempotency token so a
// retried request returns the original result instead of creating a
// duplicate event.
type TokenRegistry interface {
	Lookup(ctx context.Context, token string) (*models.BookingResult, error)
	Record(ctx context.Context, token string, result models.BookingResult) error
}

// RedisTokenRegistry stores booking results keyed by token with a TTL.
type RedisTokenRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTokenRegistry(client *redis.Client, ttl time.Duration) *RedisTokenRegistry {
	return &RedisTokenRegistry{client: client, ttl: ttl}
}

func (r *RedisTokenRegistry) Lookup(ctx context.Context, token string) (*models.BookingResult, error) {
	data, err := r.client.Get(ctx, idempotencyPrefix+token).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result models.BookingResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *RedisTokenRegistry) Record(ctx context.Context, token string, result models.BookingResult) error {
	b, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, idempotencyPrefix+token, b, r.ttl).Err()
}
