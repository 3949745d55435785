package factconfig

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearFactEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"CACHE_PREFIX", "CACHE_MIN_TOKENS", "CACHE_MAX_SIZE", "CACHE_TTL_SECONDS",
		"CIRCUIT_FAILURE_THRESHOLD", "CIRCUIT_SUCCESS_THRESHOLD", "CIRCUIT_OPEN_TIMEOUT_SECONDS", "CIRCUIT_RECOVERY_FACTOR",
		"SQL_POOL_MAX_CONNECTIONS", "SQL_QUERY_TIMEOUT_SECONDS", "SQL_MAX_ROWS",
		"TOOL_RATE_LIMIT_PER_MINUTE", "TOOL_EXECUTION_TIMEOUT_SECONDS",
		"PIPELINE_MAX_TOOL_ITERATIONS", "PIPELINE_REQUEST_TIMEOUT_SECONDS", "LLM_MAX_RETRIES",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
}

func TestFromEnv_UsesDefaultsWhenUnset(t *testing.T) {
	clearFactEnv(t)
	cfg := FromEnv()
	assert.Equal(t, Default(), cfg)
}

func TestFromEnv_OverridesFromEnvironment(t *testing.T) {
	clearFactEnv(t)
	t.Setenv("CACHE_PREFIX", "custom_v2")
	t.Setenv("CACHE_MIN_TOKENS", "75")
	t.Setenv("CACHE_MAX_SIZE", "50MB")
	t.Setenv("SQL_POOL_MAX_CONNECTIONS", "20")

	cfg := FromEnv()
	assert.Equal(t, "custom_v2", cfg.CachePrefix)
	assert.Equal(t, 75, cfg.CacheMinTokens)
	assert.EqualValues(t, 50*1024*1024, cfg.CacheMaxSize)
	assert.Equal(t, 20, cfg.SQLPoolMaxConnections)
}

func TestFromEnv_IgnoresUnparseableValues(t *testing.T) {
	clearFactEnv(t)
	t.Setenv("CACHE_MIN_TOKENS", "not-a-number")
	cfg := FromEnv()
	assert.Equal(t, Default().CacheMinTokens, cfg.CacheMinTokens)
}

func TestLoad_ValidDefaultsSucceed(t *testing.T) {
	clearFactEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_RejectsInvalidOption(t *testing.T) {
	clearFactEnv(t)
	t.Setenv("CIRCUIT_FAILURE_THRESHOLD", "0")
	_, err := Load()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "CIRCUIT_FAILURE_THRESHOLD", cfgErr.Option)
}
