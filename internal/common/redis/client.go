package redis

import (
	"context"

	"siteclock/internal/common/config"

	"github.com/go-redis/redis/v8"
)

// Client is the go-redis client type
type Client = redis.Client

// NewRedisClient creates a client from cfg (no connection is made yet)
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks the connection
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Close closes client if it is not nil
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
