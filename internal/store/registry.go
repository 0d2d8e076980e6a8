// Package store provee el registry de adaptadores de almacenamiento y la
// implementación de los repositorios de conexiones sobre ellos.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
)

// Adapter representa un engine de almacenamiento capaz de abrir conexiones.
type Adapter interface {
	// Name retorna el nombre del adapter (ej: "postgres", "mysql", "bolt", "memory").
	Name() string

	// Connect establece conexión con el almacenamiento.
	Connect(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error)
}

// AdapterConnection representa una conexión activa.
type AdapterConnection interface {
	// Name retorna el nombre del adapter.
	Name() string

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error

	// Connections retorna el store de registros de conexión.
	Connections() repository.ConnectionStore
}

// MigratableConnection interfaz opcional para conexiones con schema SQL.
// Las conexiones de DB (postgres, mysql) deben implementar esto.
type MigratableConnection interface {
	Migrate(ctx context.Context) (*MigrationResult, error)
}

// PoolStats es una foto del pool de conexiones de una DB.
type PoolStats struct {
	Acquired int
	Idle     int
	Total    int
}

// PoolStatser interfaz opcional para conexiones con pool (postgres, mysql).
type PoolStatser interface {
	PoolStats() PoolStats
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "postgres", "mysql", "bolt", "memory"
	Name string

	// DSN connection string (para DBs)
	DSN string

	// Path al archivo (para bolt)
	Path string

	// Pool settings (para DBs)
	MaxOpenConns int
	MaxIdleConns int
}

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter en el registry global.
// Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres de todos los adapters registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAdapter abre una conexión usando el adapter especificado en la config.
func OpenAdapter(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("adapter: %q not registered", cfg.Name)
	}
	return a.Connect(ctx, cfg)
}
