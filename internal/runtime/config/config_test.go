package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, []string{DefaultServer}, cfg.Servers)
	assert.Equal(t, DefaultSubjectPrefix, cfg.SubjectPrefix)
	assert.Equal(t, DefaultQueueGroup, cfg.QueueGroup)
	assert.Equal(t, DefaultMaxPayload, cfg.MaxPayload)
	assert.True(t, cfg.ReconnectEnabled)
	assert.Equal(t, DefaultReconnectWait, cfg.ReconnectWait)
	assert.Equal(t, DefaultMaxReconnects, cfg.MaxReconnects)
	assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, DefaultDrainTimeout, cfg.DrainTimeout)
	assert.False(t, cfg.TLSEnabled)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv(EnvServers, "nats://a:4222, nats://b:4222 ,")
	t.Setenv(EnvUser, "svc")
	t.Setenv(EnvPassword, "secret")
	t.Setenv(EnvTLS, "true")
	t.Setenv(EnvReconnect, "false")
	t.Setenv(EnvReconnectWait, "500ms")
	t.Setenv(EnvMaxReconnects, "10")
	t.Setenv(EnvSubjectPrefix, "custom_app")
	t.Setenv(EnvQueueGroup, "workers")
	t.Setenv(EnvMaxPayload, "100")

	cfg := FromEnv()

	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, cfg.Servers)
	assert.Equal(t, "svc", cfg.User)
	assert.Equal(t, "secret", cfg.Password)
	assert.True(t, cfg.TLSEnabled)
	assert.False(t, cfg.ReconnectEnabled)
	assert.Equal(t, 500*time.Millisecond, cfg.ReconnectWait)
	assert.Equal(t, 10, cfg.MaxReconnects)
	assert.Equal(t, "custom_app", cfg.SubjectPrefix)
	assert.Equal(t, "workers", cfg.QueueGroup)
	assert.Equal(t, 100, cfg.MaxPayload)
}

func TestFromEnv_MalformedValuesFallBack(t *testing.T) {
	t.Setenv(EnvMaxPayload, "not-a-number")
	t.Setenv(EnvReconnectWait, "soon")
	t.Setenv(EnvTLS, "maybe")

	cfg := FromEnv()

	assert.Equal(t, DefaultMaxPayload, cfg.MaxPayload)
	assert.Equal(t, DefaultReconnectWait, cfg.ReconnectWait)
	assert.False(t, cfg.TLSEnabled)
}

func TestValidate(t *testing.T) {
	t.Run("no servers", func(t *testing.T) {
		cfg := FromEnv()
		cfg.Servers = nil
		assert.ErrorContains(t, cfg.Validate(), "at least one server")
	})

	t.Run("jwt without seed", func(t *testing.T) {
		cfg := FromEnv()
		cfg.JWT = "eyJ..."
		assert.ErrorContains(t, cfg.Validate(), "nkey seed")
	})

	t.Run("jwt with seed", func(t *testing.T) {
		cfg := FromEnv()
		cfg.JWT = "eyJ..."
		cfg.NKeySeed = "SUACSSL3UA..."
		assert.NoError(t, cfg.Validate())
	})

	t.Run("cert without key", func(t *testing.T) {
		cfg := FromEnv()
		cfg.TLSEnabled = true
		cfg.TLSCertFile = "client.pem"
		assert.ErrorContains(t, cfg.Validate(), "cert and key")
	})

	t.Run("invalid max payload", func(t *testing.T) {
		cfg := FromEnv()
		cfg.MaxPayload = 0
		assert.ErrorContains(t, cfg.Validate(), "max payload")
	})
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := FromEnv()
	cfg.Password = "hunter2"
	cfg.Token = "tok-123"
	cfg.NKeySeed = "SUACSSL3UA"
	cfg.JWT = "eyJhbGciOi"

	s := cfg.String()

	assert.NotContains(t, s, "hunter2")
	assert.NotContains(t, s, "tok-123")
	assert.NotContains(t, s, "SUACSSL3UA")
	assert.NotContains(t, s, "eyJhbGciOi")
	assert.Contains(t, s, "***REDACTED***")

	// The original is untouched.
	assert.Equal(t, "hunter2", cfg.Password)
}
