package mysql

import (
	"testing"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDSN(t *testing.T) {
	out, err := normalizeDSN("app:pw@tcp(db:3306)/social")
	require.NoError(t, err)

	c, err := mysqldrv.ParseDSN(out)
	require.NoError(t, err)
	assert.True(t, c.ClientFoundRows)
	assert.True(t, c.ParseTime)
	assert.Equal(t, "social", c.DBName)
	assert.Equal(t, "db:3306", c.Addr)

	_, err = normalizeDSN("not a dsn")
	assert.Error(t, err)
}
