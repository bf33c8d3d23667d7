package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Auth.AccessTokenTTLMinutes)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 3600, cfg.Session.TTLSeconds)
	assert.Equal(t, "session:", cfg.Session.KeyPrefix)
	assert.False(t, cfg.Session.Sliding)
	assert.Equal(t, time.Hour, cfg.Session.TTL())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("AUTH_SESSION_TTL_SECONDS", "120")
	t.Setenv("AUTH_SESSION_KEY_PREFIX", "auth:sess:")
	t.Setenv("AUTH_SESSION_SLIDING", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Session.TTL())
	assert.Equal(t, "auth:sess:", cfg.Session.KeyPrefix)
	assert.True(t, cfg.Session.Sliding)
}
