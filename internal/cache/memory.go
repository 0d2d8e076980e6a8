package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type memoryClient struct {
	prefix string
	c      *gocache.Cache
}

// NewMemory crea un cache en memoria. defaultTTL aplica cuando Set recibe
// ttl < 0; las entradas vencidas se purgan cada minuto.
func NewMemory(prefix string, defaultTTL time.Duration) Client {
	if defaultTTL <= 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &memoryClient{prefix: prefix, c: gocache.New(defaultTTL, time.Minute)}
}

func (c *memoryClient) Get(_ context.Context, key string) (string, error) {
	v, ok := c.c.Get(prefixed(c.prefix, key))
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (c *memoryClient) Set(_ context.Context, key, value string, ttl time.Duration) error {
	switch {
	case ttl == 0:
		ttl = gocache.NoExpiration
	case ttl < 0:
		ttl = gocache.DefaultExpiration
	}
	c.c.Set(prefixed(c.prefix, key), value, ttl)
	return nil
}

func (c *memoryClient) Delete(_ context.Context, key string) error {
	c.c.Delete(prefixed(c.prefix, key))
	return nil
}

func (c *memoryClient) Ping(context.Context) error { return nil }

func (c *memoryClient) Close() error {
	c.c.Flush()
	return nil
}
