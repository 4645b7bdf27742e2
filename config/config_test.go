package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("QUOTA_DEFAULT_DAILY_LIMIT", "")
	cfg := Load()

	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 3, cfg.QuotaDefaultDailyLimit)
	assert.Equal(t, 15*time.Minute, cfg.VerifyCodeTTL)
	assert.Equal(t, time.Hour, cfg.VerifyResendWindow)
	assert.Equal(t, 3, cfg.VerifyResendMax)
	assert.Equal(t, "queue", cfg.MailTransport)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("QUOTA_DEFAULT_DAILY_LIMIT", "10")
	t.Setenv("QUOTA_RESERVATION_TTL", "45s")
	t.Setenv("GENERATION_TIMEOUT", "")
	t.Setenv("MAIL_SEND_ENABLED", "false")
	t.Setenv("VERIFY_RESEND_MAX", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	cfg := Load()

	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 10, cfg.QuotaDefaultDailyLimit)
	assert.Equal(t, 45*time.Second, cfg.QuotaReservationTTL)
	assert.False(t, cfg.MailSendEnabled)
	assert.Equal(t, 3, cfg.VerifyResendMax, "invalid values fall back to the default")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins())
}

func TestReservationTTLOutlivesGeneration(t *testing.T) {
	t.Setenv("GENERATION_TIMEOUT", "40s")
	t.Setenv("QUOTA_RESERVATION_TTL", "10s")
	assert.Equal(t, 100*time.Second, Load().QuotaReservationTTL)

	t.Setenv("QUOTA_RESERVATION_TTL", "40s")
	assert.Equal(t, 100*time.Second, Load().QuotaReservationTTL)

	t.Setenv("QUOTA_RESERVATION_TTL", "5m")
	assert.Equal(t, 5*time.Minute, Load().QuotaReservationTTL)
}

func TestQuotaLocation(t *testing.T) {
	cfg := &Config{QuotaTimezone: "Europe/Berlin"}
	assert.Equal(t, "Europe/Berlin", cfg.QuotaLocation().String())

	cfg.QuotaTimezone = "Mars/Olympus"
	assert.Equal(t, time.UTC, cfg.QuotaLocation())
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "5432", DBName: "fluxo", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/fluxo?sslmode=disable", cfg.PostgresDSN())
}
