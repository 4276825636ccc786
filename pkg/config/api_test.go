package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAPIConfigDefaults(t *testing.T) {
	cfg, err := LoadAPIConfig()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, MailDriverLog, cfg.MailDriver)
	assert.Equal(t, "db/migrations", cfg.MigrationsDir)
	assert.Equal(t, "accounts:mail:outbox", cfg.MailOutboxKey)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadAPIConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "sqlite:///tmp/accounts.db")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("MAIL_DRIVER", "smtp")
	t.Setenv("EMAIL_USER", "bot@example.com")
	t.Setenv("EMAIL_PASS", "app-password")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,https://app.example.com")

	cfg, err := LoadAPIConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "sqlite:///tmp/accounts.db", cfg.DatabaseURL)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "bot@example.com", cfg.Sender())
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.CORSOrigins)
}

func TestValidateRejectsSMTPWithoutCredentials(t *testing.T) {
	t.Setenv("MAIL_DRIVER", "smtp")
	_, err := LoadAPIConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMAIL_USER")
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := APIConfig{JWTSecret: "k", DatabaseURL: "x", TokenTTL: time.Hour, MailDriver: "pigeon"}
	require.Error(t, cfg.Validate())
}

func TestAddrKeepsExplicitHost(t *testing.T) {
	cfg := APIConfig{Port: "127.0.0.1:9000"}
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
}

func TestSenderPrefersMailFrom(t *testing.T) {
	cfg := APIConfig{MailFrom: "noreply@example.com", EmailUser: "bot@example.com"}
	assert.Equal(t, "noreply@example.com", cfg.Sender())
}
