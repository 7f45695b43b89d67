// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/claimspro/internal/models"
)

// Data backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Attachment stores.
const (
	AttachmentStorePostgres = "postgres"
	AttachmentStoreMinio    = "minio"
)

// DefaultAdminPassword is hashed into Settings on first start when ADMIN_PASSWORD is unset.
const DefaultAdminPassword = "admin123"

// DefaultMaxAttachmentBytes is the upload limit for a single attachment.
const DefaultMaxAttachmentBytes = 10 * 1024 * 1024

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken     string
	DatabaseURL          string
	DataBackend          string
	LogLevel             string
	LogFormat            string
	WhitelistedUserIDs   []int64
	WhitelistedUsernames []string

	AdminPassword  string
	DefaultGSTRate decimal.Decimal
	SessionTimeout time.Duration
	CompanyName    string
	CompanyABN     string

	GeminiAPIKey string

	AttachmentStore    string
	MaxAttachmentBytes int64
	Minio              MinioConfig

	OTelExporter string
	OTelEndpoint string
}

// MinioConfig holds the object store settings used when ATTACHMENT_STORE=minio.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DataBackend:      getEnv("DATA_BACKEND", BackendPostgres),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        getEnv("LOG_FORMAT", "console"),
		AdminPassword:    getEnv("ADMIN_PASSWORD", DefaultAdminPassword),
		CompanyName:      os.Getenv("COMPANY_NAME"),
		CompanyABN:       os.Getenv("COMPANY_ABN"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		AttachmentStore:  getEnv("ATTACHMENT_STORE", AttachmentStorePostgres),
		OTelExporter:     getEnv("OTEL_EXPORTER", "none"),
		OTelEndpoint:     os.Getenv("OTEL_ENDPOINT"),
		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "claimspro-attachments"),
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		},
	}

	var errs []string

	cfg.DefaultGSTRate = decimal.NewFromFloat(0.1)
	if rateStr := os.Getenv("DEFAULT_GST_RATE"); rateStr != "" {
		rate, err := decimal.NewFromString(strings.TrimSpace(rateStr))
		if err != nil {
			errs = append(errs, fmt.Sprintf("DEFAULT_GST_RATE %q is not a number", rateStr))
		} else {
			cfg.DefaultGSTRate = rate
		}
	}

	if timeoutStr := os.Getenv("SESSION_TIMEOUT"); timeoutStr != "" {
		d, err := time.ParseDuration(timeoutStr)
		if err != nil {
			errs = append(errs, fmt.Sprintf("SESSION_TIMEOUT %q is not a duration", timeoutStr))
		} else {
			cfg.SessionTimeout = d
		}
	}

	cfg.MaxAttachmentBytes = DefaultMaxAttachmentBytes
	if maxStr := os.Getenv("MAX_ATTACHMENT_BYTES"); maxStr != "" {
		if n, err := strconv.ParseInt(maxStr, 10, 64); err == nil && n > 0 {
			cfg.MaxAttachmentBytes = n
		}
	}

	whitelistStr := os.Getenv("WHITELISTED_USER_IDS")
	if whitelistStr != "" {
		for idStr := range strings.SplitSeq(whitelistStr, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				continue
			}
			cfg.WhitelistedUserIDs = append(cfg.WhitelistedUserIDs, id)
		}
	}

	whitelistUsernames := os.Getenv("WHITELISTED_USERNAMES")
	if whitelistUsernames != "" {
		for username := range strings.SplitSeq(whitelistUsernames, ",") {
			username = strings.TrimSpace(username)
			if username == "" {
				continue
			}
			username = strings.TrimPrefix(username, "@")
			cfg.WhitelistedUsernames = append(cfg.WhitelistedUsernames, username)
		}
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return cfg, nil
}

// validate checks that all required configuration is present and consistent.
func (c *Config) validate() []string {
	var errs []string

	switch c.DataBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required")
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("DATA_BACKEND %q must be one of postgres, memory", c.DataBackend))
	}

	if err := models.CheckGSTRate(c.DefaultGSTRate); err != nil {
		errs = append(errs, "DEFAULT_GST_RATE: "+err.Error())
	}

	if c.SessionTimeout < 0 {
		errs = append(errs, "SESSION_TIMEOUT cannot be negative")
	}

	if c.AdminPassword == "" {
		errs = append(errs, "ADMIN_PASSWORD cannot be empty")
	}

	switch c.AttachmentStore {
	case AttachmentStorePostgres:
	case AttachmentStoreMinio:
		if c.Minio.Endpoint == "" || c.Minio.AccessKey == "" || c.Minio.SecretKey == "" {
			errs = append(errs, "MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when ATTACHMENT_STORE=minio")
		}
		if c.DataBackend == BackendMemory {
			errs = append(errs, "ATTACHMENT_STORE=minio requires DATA_BACKEND=postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("ATTACHMENT_STORE %q must be one of postgres, minio", c.AttachmentStore))
	}

	switch c.OTelExporter {
	case "none", "stdout":
	case "otlp-grpc", "otlp-http":
		if c.OTelEndpoint == "" {
			errs = append(errs, "OTEL_ENDPOINT is required for otlp exporters")
		}
	default:
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER %q must be one of none, stdout, otlp-grpc, otlp-http", c.OTelExporter))
	}

	return errs
}

// ValidateBot checks the settings only the Telegram surface needs.
func (c *Config) ValidateBot() error {
	var errs []string

	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if len(c.WhitelistedUserIDs) == 0 && len(c.WhitelistedUsernames) == 0 {
		errs = append(errs, "at least one whitelisted user (WHITELISTED_USER_IDS or WHITELISTED_USERNAMES) is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// IsUserWhitelisted checks if a Telegram user ID or username is in the whitelist.
// Returns true if either the user ID or username is whitelisted.
func (c *Config) IsUserWhitelisted(userID int64, username string) bool {
	if slices.Contains(c.WhitelistedUserIDs, userID) {
		return true
	}

	if username != "" {
		username = strings.TrimPrefix(username, "@")
		for _, whitelisted := range c.WhitelistedUsernames {
			if strings.EqualFold(whitelisted, username) {
				return true
			}
		}
	}

	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
