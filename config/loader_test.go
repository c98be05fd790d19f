// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 8888
  read_timeout: 60s
  api_keys: ["k1", "k2"]

store:
  backend: sql
  seed_samples: false
  cache_enabled: true
  cache:
    record_ttl: 2m
    query_ttl: 15s

database:
  driver: postgres
  dsn: "postgres://market:secret@db:5432/market?sslmode=disable"
  pool:
    max_open_conns: 40

search:
  default_limit: 20
  partial_overfetch: 4
  broadening:
    price_factor: 2.0
    reputation_factor: 0.5

log:
  level: debug
  format: console
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)

	assert.Equal(t, StoreSQL, cfg.Store.Backend)
	assert.False(t, cfg.Store.SeedSamples)
	assert.True(t, cfg.Store.CacheEnabled)
	assert.Equal(t, 2*time.Minute, cfg.Store.Cache.RecordTTL)
	assert.Equal(t, 15*time.Second, cfg.Store.Cache.QueryTTL)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 40, cfg.Database.Pool.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.Pool.MaxIdleConns, "unset nested fields keep defaults")

	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, 4, cfg.Search.PartialOverfetch)
	assert.Equal(t, 5, cfg.Search.TopOverfetch)
	assert.Equal(t, 2.0, cfg.Search.Broadening.PriceFactor)
	assert.Equal(t, 0.5, cfg.Search.Broadening.ReputationFactor)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("AGENTMARKET_SERVER_HTTP_PORT", "7777")
	t.Setenv("AGENTMARKET_SERVER_WRITE_TIMEOUT", "45s")
	t.Setenv("AGENTMARKET_SERVER_RATE_LIMIT_RPS", "12.5")
	t.Setenv("AGENTMARKET_SERVER_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("AGENTMARKET_STORE_SEED_VALUE", "42")
	t.Setenv("AGENTMARKET_STORE_CACHE_QUERY_TTL", "5s")
	t.Setenv("AGENTMARKET_DATABASE_POOL_MAX_IDLE_CONNS", "3")
	t.Setenv("AGENTMARKET_REDIS_ADDR", "env-redis:6379")
	t.Setenv("AGENTMARKET_SEARCH_BROADENING_PRICE_FACTOR", "1.75")
	t.Setenv("AGENTMARKET_TELEMETRY_ENABLED", "true")
	t.Setenv("AGENTMARKET_LOG_LEVEL", "warn")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.HTTPPort)
	assert.Equal(t, 45*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 12.5, cfg.Server.RateLimitRPS)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, uint64(42), cfg.Store.SeedValue)
	assert.Equal(t, 5*time.Second, cfg.Store.Cache.QueryTTL)
	assert.Equal(t, 3, cfg.Database.Pool.MaxIdleConns)
	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 1.75, cfg.Search.Broadening.PriceFactor)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 8888
log:
  level: debug
  format: console
`)
	t.Setenv("AGENTMARKET_SERVER_HTTP_PORT", "9999")
	t.Setenv("AGENTMARKET_LOG_LEVEL", "error")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format, "YAML values survive when no env override exists")
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_HTTP_PORT", "6666")
	t.Setenv("AGENTMARKET_SERVER_HTTP_PORT", "5555")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 6666, cfg.Server.HTTPPort)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("AGENTMARKET_SERVER_READ_TIMEOUT", "soon")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGENTMARKET_SERVER_READ_TIMEOUT")
}

func TestLoader_WithValidator(t *testing.T) {
	t.Setenv("AGENTMARKET_SERVER_HTTP_PORT", "80")

	_, err := NewLoader().
		WithValidator(func(cfg *Config) error {
			if cfg.Server.HTTPPort < 1024 {
				return assert.AnError
			}
			return nil
		}).
		Load()
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/non/existent/path/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server:\n  http_port: [not a port\n")

	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:    "bad http port",
			mutate:  func(c *Config) { c.Server.HTTPPort = 0 },
			wantErr: "invalid HTTP port",
		},
		{
			name:    "port clash",
			mutate:  func(c *Config) { c.Server.MetricsPort = c.Server.HTTPPort },
			wantErr: "metrics port must differ",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Store.Backend = "etcd" },
			wantErr: `unknown store backend "etcd"`,
		},
		{
			name: "sql without dsn",
			mutate: func(c *Config) {
				c.Store.Backend = StoreSQL
				c.Database.DSN = ""
			},
			wantErr: "database.dsn is required",
		},
		{
			name: "sql with unsupported driver",
			mutate: func(c *Config) {
				c.Store.Backend = StoreSQL
				c.Database.Driver = "oracle"
			},
			wantErr: "unsupported database driver",
		},
		{
			name: "mongo without uri",
			mutate: func(c *Config) {
				c.Store.Backend = StoreMongo
				c.Mongo.URI = ""
			},
			wantErr: "mongo.uri is required",
		},
		{
			name: "cache without redis",
			mutate: func(c *Config) {
				c.Store.CacheEnabled = true
				c.Redis.Addr = ""
			},
			wantErr: "redis.addr is required",
		},
		{
			name:    "zero default limit",
			mutate:  func(c *Config) { c.Search.DefaultLimit = 0 },
			wantErr: "default_limit must be positive",
		},
		{
			name:    "price factor out of range",
			mutate:  func(c *Config) { c.Search.Broadening.PriceFactor = 3 },
			wantErr: "price factor",
		},
		{
			name:    "sample rate out of range",
			mutate:  func(c *Config) { c.Telemetry.SampleRate = 1.5 },
			wantErr: "sample_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateAggregates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.HTTPPort = -1
	cfg.Search.TopOverfetch = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
	assert.Contains(t, err.Error(), "top_overfetch")
}

// --- 辅助函数测试 ---

func TestMustLoad_Success(t *testing.T) {
	path := writeConfig(t, "server:\n  http_port: 3000\n")

	cfg := MustLoad(path)
	assert.Equal(t, 3000, cfg.Server.HTTPPort)
}

func TestMustLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "server: [unclosed\n")
	assert.Panics(t, func() { MustLoad(path) })
}

func TestLoadFromEnv_Function(t *testing.T) {
	t.Setenv("AGENTMARKET_STORE_BACKEND", "mongo")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, StoreMongo, cfg.Store.Backend)
}
