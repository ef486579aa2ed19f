package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/smithcommajoseph/async-transport/pkg/transport"
)

// Config holds all configuration for the async-transport service
type Config struct {
	// Server configuration
	HTTPPort int    `env:"ATRANSPORT_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"ATRANSPORT_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// DefaultStrategy applies to batches that do not name one
	DefaultStrategy string `env:"ATRANSPORT_DEFAULT_STRATEGY" envDefault:"parallel"`

	Redis    RedisConfig
	LLM      LLMConfig
	Fetch    FetchConfig
	Workers  WorkerConfig
	Storage  StorageConfig
	Limits   LimitConfig
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration. An empty address
// selects the in-memory adapters.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	// StreamMaxLen caps each event stream
	StreamMaxLen int64 `env:"REDIS_STREAM_MAX_LEN" envDefault:"10000"`
}

// LLMConfig holds LLM provider configuration. llm steps are rejected when
// no API key is set.
type LLMConfig struct {
	Provider         string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	APIKey           string `env:"LLM_API_KEY"`
	DefaultModel     string `env:"LLM_DEFAULT_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
	DefaultMaxTokens int    `env:"LLM_DEFAULT_MAX_TOKENS" envDefault:"1024"`
}

// FetchConfig holds settings for http steps
type FetchConfig struct {
	Timeout      time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	MaxBodyBytes int64         `env:"FETCH_MAX_BODY_BYTES" envDefault:"1048576"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"5"`
	QueueSize           int           `env:"WORKER_QUEUE_SIZE" envDefault:"100"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// StorageConfig holds invocation storage settings
type StorageConfig struct {
	ResultTTL time.Duration `env:"STORAGE_RESULT_TTL" envDefault:"24h"`
}

// LimitConfig bounds incoming batches
type LimitConfig struct {
	MaxSteps int `env:"LIMIT_MAX_STEPS" envDefault:"100"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	InvocationTimeout time.Duration `env:"TIMEOUT_INVOCATION" envDefault:"300s"`
	ShutdownTimeout   time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	if c.LLM.APIKey != "" && c.LLM.Provider != "anthropic" {
		return fmt.Errorf("unsupported LLM provider: %s (only 'anthropic' is supported)", c.LLM.Provider)
	}

	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}
	if c.Workers.QueueSize < 1 {
		return fmt.Errorf("worker queue size must be at least 1")
	}
	if c.Limits.MaxSteps < 1 {
		return fmt.Errorf("max steps must be at least 1")
	}
	if c.Fetch.MaxBodyBytes < 1 {
		return fmt.Errorf("fetch max body bytes must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Strategy returns the default strategy. Unknown values mean parallel.
func (c *Config) Strategy() transport.Strategy {
	return transport.ParseStrategy(c.DefaultStrategy)
}

// UseRedis reports whether Redis-backed adapters are configured
func (c *Config) UseRedis() bool {
	return c.Redis.Addr != ""
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
