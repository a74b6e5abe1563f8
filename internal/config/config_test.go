package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHOPADMIN_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, StoreFile, cfg.Store.Backend)
	assert.Equal(t, "@every 5m", cfg.Refresh.Session)
	assert.Empty(t, cfg.Server.AllowedOrigins)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopadmin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://shop.example.com/api
  timeout: 3s
store:
  backend: memory
server:
  port: 9090
`), 0o600))

	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("SHOPADMIN_API_TIMEOUT", "7")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://ops.example, ,https://admin.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, 9191, cfg.Server.Port, "environment wins over the file")
	assert.Equal(t, 7*time.Second, cfg.API.Timeout)
	assert.Equal(t, "127.0.0.1:9191", cfg.Server.Addr())
	assert.Equal(t, []string{"https://ops.example", "https://admin.example"}, cfg.Server.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "redis"
	cfg.API.BaseURL = " "
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")
	assert.Contains(t, err.Error(), "api.base_url")

	cfg = Default()
	cfg.Server.AllowedOrigins = []string{"*"}
	assert.ErrorContains(t, cfg.Validate(), "server.allowed_origins")
}

func TestDSN(t *testing.T) {
	cfg := Default().Database
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=shopadmin sslmode=disable", cfg.DSN())
}
