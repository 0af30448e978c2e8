package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmptyDSN(t *testing.T) {
	pool, err := New(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, pool)
}

func TestNewInvalidDSN(t *testing.T) {
	_, err := New(context.Background(), "postgres://%zz")
	assert.ErrorContains(t, err, "parse config")
}

func TestNewConnects(t *testing.T) {
	dsn := os.Getenv("PANELSYNC_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("PANELSYNC_TEST_PG_DSN not set")
	}
	pool, err := New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	assert.LessOrEqual(t, pool.Config().MaxConns, int32(4))
}
