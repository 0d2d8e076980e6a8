package mysql_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
	"github.com/dropDatabas3/socialconnect/internal/store"
	_ "github.com/dropDatabas3/socialconnect/internal/store/adapters/mysql"
	"github.com/dropDatabas3/socialconnect/internal/store/storetest"
)

// Requiere una base descartable: la suite trunca user_connection.
func TestConnectionStore(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	ctx := context.Background()

	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{Name: "mysql", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	mig, ok := conn.(store.MigratableConnection)
	require.True(t, ok)
	_, err = mig.Migrate(ctx)
	require.NoError(t, err)

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storetest.Run(t, func(t *testing.T) repository.ConnectionStore {
		_, err := db.ExecContext(ctx, "TRUNCATE TABLE user_connection")
		require.NoError(t, err)
		return conn.Connections()
	})
}
