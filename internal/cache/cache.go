// Package cache es el almacenamiento clave/valor con TTL de las sesiones.
//
// Backends:
//   - memory: go-cache, una sola instancia
//   - redis: compartido entre réplicas; el cliente lo crea el wiring y lo
//     comparte con el rate limiter
package cache

import (
	"context"
	"errors"
	"time"
)

// Client define las operaciones que usa el session store.
type Client interface {
	// Get retorna ErrNotFound si la key no existe o venció.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda value. ttl == 0 no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete es idempotente.
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
	Close() error
}

// ErrNotFound indica que la key no existe.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}
