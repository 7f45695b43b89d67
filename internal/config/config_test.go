package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// baseEnv sets the minimum environment for a postgres-backed configuration
// and clears optional variables so tests do not leak into each other.
func baseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/claimspro")
	t.Setenv("DATA_BACKEND", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("WHITELISTED_USER_IDS", "")
	t.Setenv("WHITELISTED_USERNAMES", "")
	t.Setenv("DEFAULT_GST_RATE", "")
	t.Setenv("SESSION_TIMEOUT", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ATTACHMENT_STORE", "")
	t.Setenv("MINIO_ENDPOINT", "")
	t.Setenv("MINIO_ACCESS_KEY", "")
	t.Setenv("MINIO_SECRET_KEY", "")
	t.Setenv("OTEL_EXPORTER", "")
	t.Setenv("OTEL_ENDPOINT", "")
	t.Setenv("MAX_ATTACHMENT_BYTES", "")
}

func TestLoad(t *testing.T) {
	t.Run("loads defaults", func(t *testing.T) {
		baseEnv(t)

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, BackendPostgres, cfg.DataBackend)
		require.Equal(t, DefaultAdminPassword, cfg.AdminPassword)
		require.True(t, cfg.DefaultGSTRate.Equal(decimal.RequireFromString("0.1")))
		require.Equal(t, time.Duration(0), cfg.SessionTimeout)
		require.Equal(t, int64(DefaultMaxAttachmentBytes), cfg.MaxAttachmentBytes)
		require.Equal(t, AttachmentStorePostgres, cfg.AttachmentStore)
		require.Equal(t, "none", cfg.OTelExporter)
	})

	t.Run("parses GST rate and session timeout", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("DEFAULT_GST_RATE", "0.15")
		t.Setenv("SESSION_TIMEOUT", "5m")

		cfg, err := Load()
		require.NoError(t, err)
		require.True(t, cfg.DefaultGSTRate.Equal(decimal.RequireFromString("0.15")))
		require.Equal(t, 5*time.Minute, cfg.SessionTimeout)
	})

	t.Run("rejects GST rate above one", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("DEFAULT_GST_RATE", "1.5")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "DEFAULT_GST_RATE: GST rate must be between 0 and 1")
	})

	t.Run("rejects GST rate finer than a hundredth of a percent", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("DEFAULT_GST_RATE", "0.12345")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "at most two decimal places")
	})

	t.Run("rejects malformed values and reports all of them", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("DEFAULT_GST_RATE", "ten percent")
		t.Setenv("SESSION_TIMEOUT", "five minutes")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "DEFAULT_GST_RATE")
		require.Contains(t, err.Error(), "SESSION_TIMEOUT")
	})

	t.Run("requires DATABASE_URL for postgres backend", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("DATABASE_URL", "")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "DATABASE_URL is required")
	})

	t.Run("memory backend needs no DATABASE_URL", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("DATABASE_URL", "")
		t.Setenv("DATA_BACKEND", "memory")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, BackendMemory, cfg.DataBackend)
	})

	t.Run("rejects unknown backend", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("DATA_BACKEND", "indexeddb")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "DATA_BACKEND")
	})

	t.Run("minio store needs credentials", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("ATTACHMENT_STORE", "minio")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "MINIO_ENDPOINT")
	})

	t.Run("minio store with credentials", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("ATTACHMENT_STORE", "minio")
		t.Setenv("MINIO_ENDPOINT", "localhost:9000")
		t.Setenv("MINIO_ACCESS_KEY", "key")
		t.Setenv("MINIO_SECRET_KEY", "secret")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "localhost:9000", cfg.Minio.Endpoint)
		require.Equal(t, "claimspro-attachments", cfg.Minio.Bucket)
	})

	t.Run("otlp exporter needs endpoint", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("OTEL_EXPORTER", "otlp-grpc")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "OTEL_ENDPOINT")
	})

	t.Run("parses whitelist with whitespace and invalid entries", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("WHITELISTED_USER_IDS", " 123 ,invalid,,456 ")
		t.Setenv("WHITELISTED_USERNAMES", "@Admin, site_manager ,")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, []int64{123, 456}, cfg.WhitelistedUserIDs)
		require.Equal(t, []string{"Admin", "site_manager"}, cfg.WhitelistedUsernames)
	})

	t.Run("ignores invalid attachment limit", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("MAX_ATTACHMENT_BYTES", "-5")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, int64(DefaultMaxAttachmentBytes), cfg.MaxAttachmentBytes)
	})
}

func TestValidateBot(t *testing.T) {
	t.Run("requires token and whitelist", func(t *testing.T) {
		cfg := &Config{}
		err := cfg.ValidateBot()
		require.Error(t, err)
		require.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN is required")
		require.Contains(t, err.Error(), "at least one whitelisted user")
	})

	t.Run("accepts username-only whitelist", func(t *testing.T) {
		cfg := &Config{TelegramBotToken: "token", WhitelistedUsernames: []string{"admin"}}
		require.NoError(t, cfg.ValidateBot())
	})
}

func TestIsUserWhitelisted(t *testing.T) {
	cfg := &Config{
		WhitelistedUserIDs:   []int64{123},
		WhitelistedUsernames: []string{"SiteAdmin"},
	}

	require.True(t, cfg.IsUserWhitelisted(123, ""))
	require.True(t, cfg.IsUserWhitelisted(999, "siteadmin"))
	require.True(t, cfg.IsUserWhitelisted(999, "@SiteAdmin"))
	require.False(t, cfg.IsUserWhitelisted(999, "someone"))
	require.False(t, cfg.IsUserWhitelisted(999, ""))
}
