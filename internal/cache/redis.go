package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisClient struct {
	client *redis.Client
	prefix string
}

// NewRedis usa un cliente ya conectado. Close cierra el cliente.
func NewRedis(client *redis.Client, prefix string) Client {
	return &redisClient{client: client, prefix: prefix}
}

func (c *redisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, prefixed(c.prefix, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (c *redisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, prefixed(c.prefix, key), value, ttl).Err()
}

func (c *redisClient) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, prefixed(c.prefix, key)).Err()
}

func (c *redisClient) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }
func (c *redisClient) Close() error                   { return c.client.Close() }
