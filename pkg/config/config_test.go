package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadFileThenEnvironment(t *testing.T) {
	file := writeFile(t, "dashboard.yaml", `
server:
  addr: ":9000"
store:
  driver: sqlite
  dsn: file:dash.db
  feature_cache_ttl: 30s
redis:
  addr: localhost:6379
`)
	t.Setenv("DASHBOARD_ADDR", ":9100")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load(Options{File: file})
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr, "environment wins over the file")
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "file:dash.db", cfg.Store.DSN)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 30*time.Second, cfg.Store.FeatureCacheTTL)
	assert.Equal(t, "dashboard.layout", cfg.Redis.Channel, "defaults survive partial files")
}

func TestLoadEnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "DASHBOARD_STORE_DRIVER=supabase\nSUPABASE_URL=https://x.supabase.co\nSUPABASE_SERVICE_ROLE_KEY=secret\n")
	t.Setenv("DASHBOARD_STORE_DRIVER", "")
	os.Unsetenv("DASHBOARD_STORE_DRIVER")
	os.Unsetenv("SUPABASE_URL")
	os.Unsetenv("SUPABASE_SERVICE_ROLE_KEY")
	t.Cleanup(func() {
		os.Unsetenv("SUPABASE_URL")
		os.Unsetenv("SUPABASE_SERVICE_ROLE_KEY")
	})

	cfg, err := Load(Options{EnvFiles: []string{filepath.Join(t.TempDir(), "missing.env"), envFile}})
	require.NoError(t, err)
	assert.Equal(t, DriverSupabase, cfg.Store.Driver)
	assert.Equal(t, "secret", cfg.Supabase.Key)
}

func TestValidate(t *testing.T) {
	cases := map[string]Config{
		"unknown driver":   {Store: StoreConfig{Driver: "mongo"}},
		"postgres no dsn":  {Store: StoreConfig{Driver: DriverPostgres}},
		"supabase no keys": {Store: StoreConfig{Driver: DriverSupabase}},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	_, err := Load(Options{File: writeFile(t, "bad.yaml", "server: [")})
	require.Error(t, err)
}
