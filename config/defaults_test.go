package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentmarket/internal/database"
)

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotZero(t, cfg.Server)
	assert.NotZero(t, cfg.Store)
	assert.NotZero(t, cfg.Database)
	assert.NotZero(t, cfg.Mongo)
	assert.NotZero(t, cfg.Redis)
	assert.NotZero(t, cfg.Search)
	assert.NotZero(t, cfg.Log)
	assert.NotZero(t, cfg.Telemetry)
}

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9091, cfg.MetricsPort)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100.0, cfg.RateLimitRPS)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Empty(t, cfg.APIKeys, "authentication is off by default")
	assert.Empty(t, cfg.JWTSecret)
}

func TestDefaultStoreConfig(t *testing.T) {
	cfg := DefaultStoreConfig()
	assert.Equal(t, StoreMemory, cfg.Backend)
	assert.True(t, cfg.SeedSamples)
	assert.False(t, cfg.CacheEnabled)
	assert.Positive(t, cfg.Cache.RecordTTL)
	assert.Positive(t, cfg.Cache.QueryTTL)
}

func TestDefaultDatabaseConfig(t *testing.T) {
	cfg := DefaultConfig().Database
	assert.Equal(t, database.DriverSQLite, cfg.Driver)
	assert.NotEmpty(t, cfg.DSN)
	assert.NoError(t, cfg.Pool.Validate())
}

func TestDefaultSearchConfig(t *testing.T) {
	cfg := DefaultConfig().Search
	assert.Equal(t, 10, cfg.DefaultLimit)
	assert.Equal(t, 3, cfg.PartialOverfetch)
	assert.Equal(t, 5, cfg.TopOverfetch)
	assert.Zero(t, cfg.BestValueCandidateCap)
	assert.Equal(t, 1.5, cfg.Broadening.PriceFactor)
	assert.Equal(t, 0.75, cfg.Broadening.ReputationFactor)
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	cfg := DefaultTelemetryConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "agentmarket", cfg.ServiceName)
	assert.Equal(t, 0.1, cfg.SampleRate)
}
