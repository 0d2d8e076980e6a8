// Package memory implementa un connection store en memoria. No persiste;
// sirve para desarrollo y para los tests de los repositorios.
package memory

import (
	"context"

	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
	"github.com/dropDatabas3/socialconnect/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	return &memoryConnection{store: NewConnectionStore()}, nil
}

type memoryConnection struct {
	store *ConnectionStore
}

func (c *memoryConnection) Name() string                            { return "memory" }
func (c *memoryConnection) Ping(ctx context.Context) error          { return nil }
func (c *memoryConnection) Close() error                            { return nil }
func (c *memoryConnection) Connections() repository.ConnectionStore { return c.store }
