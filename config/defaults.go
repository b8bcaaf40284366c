// =============================================================================
// 📦 AgentOrch 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:       DefaultServerConfig(),
		Libraries:    DefaultLibrariesConfig(),
		Orchestrator: DefaultOrchestratorConfig(),
		Claude:       DefaultClaudeConfig(),
		Cache:        DefaultCacheConfig(),
		Log:          DefaultLogConfig(),
		Telemetry:    DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    0, // 流式响应可能持续数分钟
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    50,
		RateLimitBurst:  100,
	}
}

// DefaultLibrariesConfig 返回默认库文件路径
func DefaultLibrariesConfig() LibrariesConfig {
	return LibrariesConfig{
		AgentsPath:    "configs/agents.yaml",
		WorkflowsPath: "configs/workflows.yaml",
		Watch:         true,
	}
}

// DefaultOrchestratorConfig 返回默认执行限制
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		TaskTimeout:    2 * time.Minute,
		MaxRetries:     2,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		Jitter:         true,
		MaxConcurrency: 4,
		StreamTimeout:  5 * time.Minute,
	}
}

// DefaultClaudeConfig 返回默认 Claude 配置
func DefaultClaudeConfig() ClaudeConfig {
	return ClaudeConfig{
		Timeout:    2 * time.Minute,
		SDKRetries: 0,
	}
}

// DefaultCacheConfig 返回默认缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      false,
		LocalMaxSize: 1000,
		LocalTTL:     5 * time.Minute,
		RedisTTL:     time.Hour,
		Redis: RedisConfig{
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
		},
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

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentorch",
		SampleRate:   0.1,
	}
}
