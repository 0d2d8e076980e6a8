// Package rate implementa rate limiting fixed-window, en memoria o en redis.
package rate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Result es la respuesta de Allow.
type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter: fixed window sencillo (INCR + EXPIRE)
type RedisLimiter struct {
	Client rdb.UniversalClient
	Prefix string
	Max    int64
	Window time.Duration
}

func NewRedisLimiter(client rdb.UniversalClient, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		Client: client,
		Prefix: prefix,
		Max:    int64(max),
		Window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.Window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return Result{}, err
	}

	// set expiry on first hit
	if incr.Val() == 1 {
		_ = l.Client.Expire(ctx, redisKey, l.Window).Err()
		ttl = l.Client.TTL(ctx, redisKey)
	}

	return result(incr.Val(), l.Max, ttl.Val(), l.Window), nil
}

func result(hits, max int64, ttl, window time.Duration) Result {
	allowed := hits <= max
	remaining := max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   ttl,
	}
	if !allowed {
		// Retry after: resto de la ventana
		res.RetryAfter = ttl
		if res.RetryAfter <= 0 {
			res.RetryAfter = time.Duration(math.Ceil(window.Seconds())) * time.Second
		}
	}
	return res
}
