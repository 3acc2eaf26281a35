// =============================================================================
// 📦 ADOS 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Registry:  DefaultRegistryConfig(),
		Workspace: DefaultWorkspaceConfig(),
		Memory:    DefaultMemoryConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Reload:    DefaultReloadConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultRegistryConfig 返回默认注册表文件位置
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		ConfigDir: "./config",
	}
}

// DefaultWorkspaceConfig 返回默认工作区配置
func DefaultWorkspaceConfig() WorkspaceConfig {
	return WorkspaceConfig{
		Directory:    "./workspace",
		KnowledgeDir: "kb",
	}
}

// DefaultMemoryConfig 返回默认记忆配置
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Backend:           "file",
		Directory:         "./memory/crew_memory",
		MaxSizeMB:         100,
		SessionMaxEntries: 1000,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Name:            "ados.db",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultReloadConfig 返回默认热重载配置
func DefaultReloadConfig() ReloadConfig {
	return ReloadConfig{
		Enabled:        false,
		DebounceDelay:  500 * time.Millisecond,
		MaxHistorySize: 10,
		MinInterval:    2 * time.Second,
		Burst:          1,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "ados",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "ados",
		SampleRate:   1.0,
	}
}
