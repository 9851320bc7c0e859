package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majdjadalhaq/MovieValut/internal/config"
	"github.com/majdjadalhaq/MovieValut/internal/secrets"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()

	a, err := Open(ctx, &config.Config{StoreDriver: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "memory", a.Backend())
	assert.True(t, a.Available())

	a, err = Open(ctx, &config.Config{StoreDriver: "sqlite", StorePath: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, "sqlite", a.Backend())
	assert.True(t, a.Available())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreDriver: "etcd"})
	assert.ErrorContains(t, err, "etcd")
}

func TestOpenRequiresConnectionURLs(t *testing.T) {
	for _, driver := range []string{"postgres", "redis"} {
		_, err := Open(context.Background(), &config.Config{StoreDriver: driver})
		var ve *secrets.ValidationError
		assert.ErrorAs(t, err, &ve, driver)
	}
}
