package config_test

import (
	"testing"
	"time"

	"complaintdesk/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COMPLAINTS_AUTH_JWTSECRET", "test-secret")
	t.Setenv("COMPLAINTS_HTTP_ADDR", ":9090")
	t.Setenv("COMPLAINTS_AUTH_TOKENTTL", "2h")
	t.Setenv("COMPLAINTS_ALLOWCORSORIGINS", "http://a.test,http://b.test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "complaintdesk", cfg.Auth.Issuer)
	assert.Empty(t, cfg.Redis.Addr, "redis fan-out is off unless configured")
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowCORSOrigins)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COMPLAINTS_AUTH_JWTSECRET", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestRead_DoesNotRequireSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COMPLAINTS_AUTH_JWTSECRET", "")
	t.Setenv("COMPLAINTS_POSTGRES_DSN", "postgres://cli@localhost/complaints")

	cfg, err := config.Read()
	require.NoError(t, err)
	assert.Equal(t, "postgres://cli@localhost/complaints", cfg.Postgres.DSN)
}
