package factconfig

import (
	"os"
	"strconv"
	"time"

	"github.com/fact-run/fact/pkg/cache"
)

// Config is the full set of options recognized by the runtime (spec §6.5).
// Every field is loadable from an environment variable of the same name;
// FromEnv applies the spec's documented defaults for anything unset.
type Config struct {
	CachePrefix     string `validate:"required"`
	CacheMinTokens  int    `validate:"gte=0"`
	CacheMaxSize    int64  `validate:"gt=0"`
	CacheTTLSeconds int    `validate:"gt=0"`

	CircuitFailureThreshold   int     `validate:"gte=1"`
	CircuitSuccessThreshold   int     `validate:"gte=1"`
	CircuitOpenTimeoutSeconds int     `validate:"gte=1"`
	CircuitRecoveryFactor     float64 `validate:"gt=0,lte=1"`

	SQLPoolMaxConnections  int `validate:"gte=1,lte=100"`
	SQLQueryTimeoutSeconds int `validate:"gte=1"`
	SQLMaxRows             int `validate:"gte=1"`

	ToolRateLimitPerMinute      int `validate:"gte=1"`
	ToolExecutionTimeoutSeconds int `validate:"gte=1"`

	PipelineMaxToolIterations     int `validate:"gte=1,lte=50"`
	PipelineRequestTimeoutSeconds int `validate:"gte=1"`
	LLMMaxRetries                 int `validate:"gte=0,lte=20"`
}

// Default returns the spec §6.5 default configuration.
func Default() Config {
	return Config{
		CachePrefix:    "fact_v1",
		CacheMinTokens: 50,
		CacheMaxSize:   10 * 1024 * 1024,
		CacheTTLSeconds: 3600,

		CircuitFailureThreshold:   5,
		CircuitSuccessThreshold:   3,
		CircuitOpenTimeoutSeconds: 60,
		CircuitRecoveryFactor:     0.5,

		SQLPoolMaxConnections:  10,
		SQLQueryTimeoutSeconds: 30,
		SQLMaxRows:             10000,

		ToolRateLimitPerMinute:      100,
		ToolExecutionTimeoutSeconds: 30,

		PipelineMaxToolIterations:     5,
		PipelineRequestTimeoutSeconds: 60,
		LLMMaxRetries:                 3,
	}
}

// FromEnv loads Config from environment variables, falling back to
// Default() for anything unset or unparseable. Use Validator.ValidateAll
// afterward to reject out-of-range values.
func FromEnv() Config {
	cfg := Default()

	cfg.CachePrefix = envString("CACHE_PREFIX", cfg.CachePrefix)
	cfg.CacheMinTokens = envInt("CACHE_MIN_TOKENS", cfg.CacheMinTokens)
	if raw, ok := os.LookupEnv("CACHE_MAX_SIZE"); ok {
		if n, err := cache.ParseSize(raw); err == nil {
			cfg.CacheMaxSize = n
		}
	}
	cfg.CacheTTLSeconds = envInt("CACHE_TTL_SECONDS", cfg.CacheTTLSeconds)

	cfg.CircuitFailureThreshold = envInt("CIRCUIT_FAILURE_THRESHOLD", cfg.CircuitFailureThreshold)
	cfg.CircuitSuccessThreshold = envInt("CIRCUIT_SUCCESS_THRESHOLD", cfg.CircuitSuccessThreshold)
	cfg.CircuitOpenTimeoutSeconds = envInt("CIRCUIT_OPEN_TIMEOUT_SECONDS", cfg.CircuitOpenTimeoutSeconds)
	cfg.CircuitRecoveryFactor = envFloat("CIRCUIT_RECOVERY_FACTOR", cfg.CircuitRecoveryFactor)

	cfg.SQLPoolMaxConnections = envInt("SQL_POOL_MAX_CONNECTIONS", cfg.SQLPoolMaxConnections)
	cfg.SQLQueryTimeoutSeconds = envInt("SQL_QUERY_TIMEOUT_SECONDS", cfg.SQLQueryTimeoutSeconds)
	cfg.SQLMaxRows = envInt("SQL_MAX_ROWS", cfg.SQLMaxRows)

	cfg.ToolRateLimitPerMinute = envInt("TOOL_RATE_LIMIT_PER_MINUTE", cfg.ToolRateLimitPerMinute)
	cfg.ToolExecutionTimeoutSeconds = envInt("TOOL_EXECUTION_TIMEOUT_SECONDS", cfg.ToolExecutionTimeoutSeconds)

	cfg.PipelineMaxToolIterations = envInt("PIPELINE_MAX_TOOL_ITERATIONS", cfg.PipelineMaxToolIterations)
	cfg.PipelineRequestTimeoutSeconds = envInt("PIPELINE_REQUEST_TIMEOUT_SECONDS", cfg.PipelineRequestTimeoutSeconds)
	cfg.LLMMaxRetries = envInt("LLM_MAX_RETRIES", cfg.LLMMaxRetries)

	return cfg
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// CircuitOpenTimeout returns the open-timeout duration.
func (c Config) CircuitOpenTimeout() time.Duration {
	return time.Duration(c.CircuitOpenTimeoutSeconds) * time.Second
}

// CacheTTL returns the cache entry TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// SQLQueryTimeout returns the per-query timeout as a duration.
func (c Config) SQLQueryTimeout() time.Duration {
	return time.Duration(c.SQLQueryTimeoutSeconds) * time.Second
}

// ToolExecutionTimeout returns the default tool handler timeout.
func (c Config) ToolExecutionTimeout() time.Duration {
	return time.Duration(c.ToolExecutionTimeoutSeconds) * time.Second
}

// PipelineRequestTimeout returns the overall per-request deadline.
func (c Config) PipelineRequestTimeout() time.Duration {
	return time.Duration(c.PipelineRequestTimeoutSeconds) * time.Second
}
