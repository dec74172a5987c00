package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/finance-chat/internal/store"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FINCHAT_STORAGE", "")
	t.Setenv("FINCHAT_JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 50*time.Millisecond, cfg.SuggestionDelay)
	assert.Error(t, cfg.RequireJWTSecret())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FINCHAT_STORAGE", "bolt")
	t.Setenv("FINCHAT_BOLT_PATH", "/tmp/chat.bolt")
	t.Setenv("FINCHAT_JWT_SECRET", "s3cret")
	t.Setenv("FINCHAT_SUGGESTION_DELAY", "120ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.NoError(t, cfg.RequireJWTSecret())
	assert.Equal(t, 120*time.Millisecond, cfg.SuggestionDelay)

	opts := cfg.StoreOptions()
	assert.Equal(t, store.BackendBolt, opts.Backend)
	assert.Equal(t, "/tmp/chat.bolt", opts.BoltPath)
	assert.False(t, opts.S3.UsePathStyle)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("FINCHAT_SUGGESTION_DELAY", "soon")

	_, err := Load()
	assert.Error(t, err)
}
