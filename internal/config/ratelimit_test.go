package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfig_Defaults(t *testing.T) {
	cfg := LoadRateLimitConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 10, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 3*time.Second, cfg.RefillInterval)
	assert.True(t, cfg.PerRoute)
	assert.Equal(t, "rl", cfg.Prefix)
}

func TestLoadRateLimitConfig_ClampsTTL(t *testing.T) {
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "10s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 5*time.Minute, cfg.TTL, "TTL must cover several refill intervals")
}

func TestLoadRateLimitConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "-3")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "zero")
	t.Setenv("RATE_LIMIT_ENABLED", "maybe")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.True(t, cfg.Enabled)
}
