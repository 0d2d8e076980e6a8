// Package mysql implementa el adapter MySQL del connection store.
// Usa database/sql con github.com/go-sql-driver/mysql.
//
// Requisitos:
//   - MySQL 8.0+
//   - DSN format: user:password@tcp(host:port)/database
//     (parseTime y clientFoundRows se fuerzan al conectar)
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
	"github.com/dropDatabas3/socialconnect/internal/store"
	migrations "github.com/dropDatabas3/socialconnect/migrations/mysql"
)

func init() {
	store.RegisterAdapter(&mysqlAdapter{})
}

// mysqlAdapter implementa store.Adapter para MySQL.
type mysqlAdapter struct{}

func (a *mysqlAdapter) Name() string { return "mysql" }

func (a *mysqlAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	if cfg.DSN == "" {
		return nil, errors.New("mysql: DSN is required")
	}
	dsn, err := normalizeDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}

	// Configurar pool de conexiones
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(2)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	// Verificar conectividad
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping failed: %w", err)
	}

	return &mysqlConnection{db: db}, nil
}

// normalizeDSN fuerza parseTime (timestamps como time.Time) y
// clientFoundRows: Update cuenta filas encontradas, no modificadas.
func normalizeDSN(dsn string) (string, error) {
	c, err := mysqldrv.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql: parse dsn: %w", err)
	}
	c.ParseTime = true
	c.ClientFoundRows = true
	return c.FormatDSN(), nil
}

// mysqlConnection representa una conexión activa a MySQL.
type mysqlConnection struct {
	db *sql.DB
}

func (c *mysqlConnection) Name() string { return "mysql" }

func (c *mysqlConnection) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *mysqlConnection) Close() error {
	return c.db.Close()
}

// PoolStats implementa store.PoolStatser.
func (c *mysqlConnection) PoolStats() store.PoolStats {
	st := c.db.Stats()
	return store.PoolStats{Acquired: st.InUse, Idle: st.Idle, Total: st.OpenConnections}
}

func (c *mysqlConnection) Connections() repository.ConnectionStore {
	return &connectionStore{db: c.db}
}

// Migrate implementa store.MigratableConnection.
func (c *mysqlConnection) Migrate(ctx context.Context) (*store.MigrationResult, error) {
	return store.NewMigrator(migrations.FS, migrations.Dir).Run(ctx, &sqlExecutor{db: c.db})
}

// sqlExecutor adapta sql.DB a store.SQLExecutor.
// Las migraciones MySQL usan ? directamente.
type sqlExecutor struct {
	db *sql.DB
}

func (e *sqlExecutor) Dialect() string { return "mysql" }

func (e *sqlExecutor) Exec(ctx context.Context, query string, args ...any) error {
	_, err := e.db.ExecContext(ctx, query, args...)
	return err
}

func (e *sqlExecutor) QueryInts(ctx context.Context, query string) ([]int, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
