// Package pg implementa el adapter PostgreSQL del connection store.
// Usa pgxpool directamente.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
	"github.com/dropDatabas3/socialconnect/internal/store"
	migrations "github.com/dropDatabas3/socialconnect/migrations/postgres"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// nullIfEmpty returns nil if the string is empty, otherwise returns the string pointer.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullIfZero es nullIfEmpty para expire_time.
func nullIfZero(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

// postgresAdapter implementa store.Adapter para PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	if cfg.DSN == "" {
		return nil, errors.New("pg: DSN is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	// Configurar pool
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}

	// Verificar conexión
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	return &pgConnection{pool: pool}, nil
}

// pgConnection representa una conexión activa a PostgreSQL.
type pgConnection struct {
	pool *pgxpool.Pool
}

func (c *pgConnection) Name() string { return "postgres" }

func (c *pgConnection) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *pgConnection) Close() error {
	c.pool.Close()
	return nil
}

func (c *pgConnection) Connections() repository.ConnectionStore {
	return newConnectionStore(c.pool)
}

// PoolStats implementa store.PoolStatser.
func (c *pgConnection) PoolStats() store.PoolStats {
	st := c.pool.Stat()
	return store.PoolStats{
		Acquired: int(st.AcquiredConns()),
		Idle:     int(st.IdleConns()),
		Total:    int(st.TotalConns()),
	}
}

// Migrate implementa store.MigratableConnection.
func (c *pgConnection) Migrate(ctx context.Context) (*store.MigrationResult, error) {
	return store.NewMigrator(migrations.FS, migrations.Dir).Run(ctx, &pgxExecutor{pool: c.pool})
}

// pgxExecutor adapta pgxpool.Pool a store.SQLExecutor.
type pgxExecutor struct {
	pool *pgxpool.Pool
}

func (e *pgxExecutor) Dialect() string { return "postgres" }

func (e *pgxExecutor) Exec(ctx context.Context, query string, args ...any) error {
	_, err := e.pool.Exec(ctx, query, args...)
	return err
}

func (e *pgxExecutor) QueryInts(ctx context.Context, query string) ([]int, error) {
	rows, err := e.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}
