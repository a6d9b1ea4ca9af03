// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"schedulai/config"

	"github.com/go-redis/redis/v8"
)

var (
	// SessionCacheClient backs the Redis conversation state store.
	SessionCacheClient *redis.Client
	// IdempotencyCacheClient backs the booking idempotency registry.
	IdempotencyCacheClient *redis.Client
)

// InitSessionCache initializes the Redis client for conversation state
// (using the session DB from AppConfig).
func InitSessionCache() {
	SessionCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSessionDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := SessionCacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Session Cache): %v", err)
	}
}

// GetSessionCacheClient returns the session cache client.
func GetSessionCacheClient() *redis.Client {
	if SessionCacheClient == nil {
		InitSessionCache()
	}
	return SessionCacheClient
}

// InitIdempotencyCache initializes the Redis client for booking idempotency
// tokens (using the idempotency DB from AppConfig).
func InitIdempotencyCache() {
	IdempotencyCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisIdempotencyDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := IdempotencyCacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Idempotency Cache): %v", err)
	}
}

// GetIdempotencyCacheClient returns the idempotency registry client.
func GetIdempotencyCacheClient() *redis.Client {
	if IdempotencyCacheClient == nil {
		InitIdempotencyCache()
	}
	return IdempotencyCacheClient
}
