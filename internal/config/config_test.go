package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AI_REPLY_TIMEOUT", "")
	t.Setenv("AI_CONTEXT_WINDOW", "")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.Ai.ReplyTimeout)
	assert.Equal(t, 20, cfg.Ai.ContextWindow)
	assert.NotEmpty(t, cfg.App.InstanceID)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AI_REPLY_TIMEOUT", "2s")
	t.Setenv("AI_CONTEXT_WINDOW", "5")
	t.Setenv("ACCESS_CACHE_TTL", "1m")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("INSTANCE_ID", "node-a")

	cfg := Load()

	assert.Equal(t, 2*time.Second, cfg.Ai.ReplyTimeout)
	assert.Equal(t, 5, cfg.Ai.ContextWindow)
	assert.Equal(t, time.Minute, cfg.Access.CacheTTL)
	assert.True(t, cfg.Telemetry.OtelEnabled)
	assert.Equal(t, "node-a", cfg.App.InstanceID)
}

func TestGetEnvAsIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-number")
	assert.Equal(t, 587, getEnvAsInt("SMTP_PORT", 587))
}
