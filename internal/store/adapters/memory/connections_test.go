package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialconnect/internal/domain/repository"
	"github.com/dropDatabas3/socialconnect/internal/store"
	"github.com/dropDatabas3/socialconnect/internal/store/adapters/memory"
	"github.com/dropDatabas3/socialconnect/internal/store/storetest"
)

func TestConnectionStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.ConnectionStore {
		return memory.NewConnectionStore()
	})
}

func TestAdapterRegistered(t *testing.T) {
	conn, err := store.OpenAdapter(context.Background(), store.AdapterConfig{Name: "memory"})
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "memory", conn.Name())
	assert.NoError(t, conn.Ping(context.Background()))
	assert.NotNil(t, conn.Connections())

	_, ok := conn.(store.MigratableConnection)
	assert.False(t, ok)
}
