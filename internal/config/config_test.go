package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6001, cfg.Server.Port)
	assert.Equal(t, "http://localhost:3000", cfg.Auth.BackendURL)
	assert.Equal(t, 5*time.Second, cfg.Auth.VerifyTimeout)
	assert.Equal(t, "http://localhost:3000", cfg.CORS.AllowedOrigin)
	assert.Equal(t, "/ws", cfg.WebSocket.Path)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.NATS.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RELAY_SERVER_PORT", "7100")
	t.Setenv("RELAY_AUTH_BACKEND_URL", "https://api.rapollo.shop")
	t.Setenv("RELAY_CORS_ALLOWED_ORIGIN", "https://rapollo.shop")
	t.Setenv("RELAY_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, "https://api.rapollo.shop", cfg.Auth.BackendURL)
	assert.Equal(t, "https://rapollo.shop", cfg.CORS.AllowedOrigin)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadSanityFloors(t *testing.T) {
	t.Setenv("RELAY_WEBSOCKET_SEND_CHANNEL_SIZE", "-1")
	t.Setenv("RELAY_AUTH_VERIFY_TIMEOUT", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.WebSocket.SendChannelSize)
	assert.Equal(t, 5*time.Second, cfg.Auth.VerifyTimeout)
}
