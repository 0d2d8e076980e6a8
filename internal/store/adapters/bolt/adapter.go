// Package bolt implementa el connection store sobre un archivo bbolt.
// Pensado para despliegues de una sola instancia sin base de datos externa.
package bolt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
	"github.com/dropDatabas3/socialconnect/internal/store"
)

const (
	dirPerm     = fs.FileMode(0o700)
	filePerm    = fs.FileMode(0o600)
	openTimeout = 5 * time.Second
)

var (
	connectionsBucket = []byte("connections")
	// accountsBucket indexa provider/cuenta → usuario para lookups inversos.
	accountsBucket = []byte("accounts")
)

func init() {
	store.RegisterAdapter(&boltAdapter{})
}

type boltAdapter struct{}

func (a *boltAdapter) Name() string { return "bolt" }

func (a *boltAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	path := cfg.Path
	if path == "" {
		path = cfg.DSN
	}
	if path == "" {
		return nil, errors.New("bolt: path is required")
	}
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &boltConnection{db: db}, nil
}

// Open abre (o crea) el archivo y sus buckets.
func Open(path string) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("bolt: creating directory: %w", err)
	}
	db, err := bolt.Open(path, filePerm, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("bolt: open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(connectionsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(accountsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt: initializing buckets: %w", err)
	}
	return db, nil
}

type boltConnection struct {
	db *bolt.DB
}

func (c *boltConnection) Name() string { return "bolt" }

func (c *boltConnection) Ping(ctx context.Context) error {
	return c.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(connectionsBucket) == nil {
			return errors.New("bolt: connections bucket missing")
		}
		return nil
	})
}

func (c *boltConnection) Close() error { return c.db.Close() }

func (c *boltConnection) Connections() repository.ConnectionStore {
	return NewConnectionStore(c.db)
}
