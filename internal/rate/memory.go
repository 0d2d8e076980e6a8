package rate

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es el fixed window de RedisLimiter sobre go-cache, para
// despliegues de una sola instancia.
type MemoryLimiter struct {
	c      *gocache.Cache
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, 2*window),
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.window)
	k := fmt.Sprintf("%s:%d", key, winStart.Unix())

	// Add falla si la ventana ya existe; el incremento es atómico
	_ = l.c.Add(k, int64(0), l.window)
	hits, err := l.c.IncrementInt64(k, 1)
	if err != nil {
		return Result{}, err
	}
	return result(hits, l.max, winStart.Add(l.window).Sub(now), l.window), nil
}
