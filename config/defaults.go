// =============================================================================
// 📦 AgentMarket 默认配置
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/agentmarket/agent/discovery"
	"github.com/BaSui01/agentmarket/agent/discovery/cachestore"
	"github.com/BaSui01/agentmarket/agent/discovery/mongostore"
	"github.com/BaSui01/agentmarket/internal/cache"
	"github.com/BaSui01/agentmarket/internal/database"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Store:     DefaultStoreConfig(),
		Database:  database.DefaultConfig(),
		Mongo:     mongostore.DefaultConfig(),
		Redis:     cache.DefaultConfig(),
		Search:    *discovery.DefaultServiceConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// DefaultStoreConfig serves the sample catalog from memory.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Backend:          StoreMemory,
		SeedSamples:      true,
		SeedValue:        1,
		AutoMigrate:      true,
		CombinedOrdering: true,
		Cache:            cachestore.DefaultConfig(),
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		Insecure:     true,
		ServiceName:  "agentmarket",
		SampleRate:   0.1,
	}
}
