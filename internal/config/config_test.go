package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.HttpServer.Port)
	assert.Equal(t, "9090", cfg.GrpcServer.Port)
	assert.Equal(t, "https://fakestoreapi.com", cfg.Upstream.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, time.Minute, cfg.Upstream.CacheTTL)
	assert.Equal(t, BackendMemory, cfg.Cart.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cart.IdleTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cart.SweepInterval)
}

func TestLoad_InvalidEviction(t *testing.T) {
	t.Setenv("CART_SWEEP_INTERVAL", "0s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CART_SWEEP_INTERVAL")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_SERVER_PORT", "3000")
	t.Setenv("CATALOG_CACHE_TTL", "0s")
	t.Setenv("CART_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.HttpServer.Port)
	assert.Equal(t, time.Duration(0), cfg.Upstream.CacheTTL)
	assert.Equal(t, BackendRedis, cfg.Cart.Backend)
	assert.Equal(t, "redis://cache:6379/2", cfg.Redis.URL)
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("CART_BACKEND", "localstorage")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid CART_BACKEND")
}

func TestLoad_PostgresRequiresCredentials(t *testing.T) {
	t.Setenv("CART_BACKEND", "postgres")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_DBNAME", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("POSTGRES_USER", "shop")
	t.Setenv("POSTGRES_DBNAME", "storefront")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "host=localhost port=5432 user=shop password= dbname=storefront sslmode=disable", cfg.Postgres.DSN())
}
