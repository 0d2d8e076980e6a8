package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Las migraciones SQL se embeben en el binario (ver /migrations).
// Formato de archivo: {version}_{name}.sql (ej: 0001_user_connection.sql)

// Migrator aplica migraciones SQL a una base de datos.
type Migrator struct {
	migrationsFS  embed.FS
	migrationsDir string
}

// NewMigrator crea un nuevo Migrator.
func NewMigrator(migrationsFS embed.FS, migrationsDir string) *Migrator {
	return &Migrator{
		migrationsFS:  migrationsFS,
		migrationsDir: migrationsDir,
	}
}

// Migration representa una migración individual.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationResult resultado de aplicar migraciones.
type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Failed   *int
	Error    error
	Duration time.Duration
}

// migrationFilePattern patrón para nombres de archivo de migración.
var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// ParseMigrations lee y parsea las migraciones del FS embebido.
func (m *Migrator) ParseMigrations() ([]Migration, error) {
	var migrations []Migration

	err := fs.WalkDir(m.migrationsFS, m.migrationsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		filename := filepath.Base(path)
		matches := migrationFilePattern.FindStringSubmatch(filename)
		if matches == nil {
			return nil // Ignorar archivos que no coinciden
		}

		version, _ := strconv.Atoi(matches[1])
		content, err := m.migrationsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    matches[2],
			SQL:     string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// SQLExecutor abstrae pgx vs database/sql para el Migrator.
type SQLExecutor interface {
	// Dialect es "postgres" o "mysql".
	Dialect() string
	Exec(ctx context.Context, query string, args ...any) error
	QueryInts(ctx context.Context, query string) ([]int, error)
}

// Run aplica migraciones pendientes. Cada migración corre sola; si falla,
// las siguientes no se intentan.
func (m *Migrator) Run(ctx context.Context, exec SQLExecutor) (*MigrationResult, error) {
	start := time.Now()
	result := &MigrationResult{}
	fail := func(err error) (*MigrationResult, error) {
		result.Error = err
		result.Duration = time.Since(start)
		return result, err
	}

	if err := exec.Exec(ctx, migrationsTableSQL(exec.Dialect())); err != nil {
		return fail(fmt.Errorf("creating migrations table: %w", err))
	}

	versions, err := exec.QueryInts(ctx, "SELECT version FROM _migrations")
	if err != nil {
		return fail(fmt.Errorf("getting applied migrations: %w", err))
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	migrations, err := m.ParseMigrations()
	if err != nil {
		return fail(fmt.Errorf("parsing migrations: %w", err))
	}

	insert := "INSERT INTO _migrations (version, name) VALUES ($1, $2)"
	if exec.Dialect() == "mysql" {
		insert = "INSERT INTO _migrations (version, name) VALUES (?, ?)"
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			result.Skipped = append(result.Skipped, mig.Version)
			continue
		}
		if err := exec.Exec(ctx, mig.SQL); err != nil {
			v := mig.Version
			result.Failed = &v
			return fail(fmt.Errorf("applying migration %d_%s: %w", mig.Version, mig.Name, err))
		}
		if err := exec.Exec(ctx, insert, mig.Version, mig.Name); err != nil {
			return fail(fmt.Errorf("recording migration %d: %w", mig.Version, err))
		}
		result.Applied = append(result.Applied, mig.Version)
	}

	result.Duration = time.Since(start)
	return result, nil
}

func migrationsTableSQL(dialect string) string {
	if dialect == "mysql" {
		return `
			CREATE TABLE IF NOT EXISTS _migrations (
				version INT PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`
	}
	return `
		CREATE TABLE IF NOT EXISTS _migrations (
			version INT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`
}
