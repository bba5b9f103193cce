// Package config loads service settings from the environment, optionally
// layered over a TOML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/database"
)

type Config struct {
	HTTPAddr    string // PORT (default "8080")
	DatabaseURL string // DATABASE_URL, else built from DB_* parts
	LogLevel    string // LOG_LEVEL (default "info")
	CORSOrigins []string

	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string
	Currency             string // CURRENCY (default "usd")

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	AuthJWTSecret          string // AUTH_JWT_SECRET (required)
	SupabaseURL            string
	SupabaseServiceRoleKey string
	AdminRole              string // ADMIN_ROLE (default "admin")

	NATSURL string // NATS_URL (optional, empty = no events)

	EnforceCapacity bool          // ENFORCE_CAPACITY (default true)
	PendingTTL      time.Duration // PENDING_TTL (default 24h)
	GatewayTimeout  time.Duration // GATEWAY_TIMEOUT (default 10s)
	NotifyTimeout   time.Duration // NOTIFY_TIMEOUT (default 10s)

	ExportS3Bucket   string
	ExportS3Region   string
	ExportS3Endpoint string
	ExportS3Prefix   string
}

// fileConfig mirrors the subset of settings that may live in the TOML file.
// Secrets are expected in the environment.
type fileConfig struct {
	Port            string   `toml:"port"`
	DatabaseURL     string   `toml:"database_url"`
	LogLevel        string   `toml:"log_level"`
	CORSOrigins     []string `toml:"cors_origins"`
	Currency        string   `toml:"currency"`
	AdminRole       string   `toml:"admin_role"`
	NATSURL         string   `toml:"nats_url"`
	EnforceCapacity *bool    `toml:"enforce_capacity"`
	PendingTTL      string   `toml:"pending_ttl"`
	GatewayTimeout  string   `toml:"gateway_timeout"`
	NotifyTimeout   string   `toml:"notify_timeout"`
	SupabaseURL     string   `toml:"supabase_url"`

	SMTP struct {
		Host string `toml:"host"`
		Port int    `toml:"port"`
		From string `toml:"from"`
	} `toml:"smtp"`

	Export struct {
		Bucket   string `toml:"bucket"`
		Region   string `toml:"region"`
		Endpoint string `toml:"endpoint"`
		Prefix   string `toml:"prefix"`
	} `toml:"export"`
}

// Load reads configuration. When BOOTCAMP_CONFIG names a TOML file its values
// replace the built-in defaults; environment variables win over both.
func Load() (*Config, error) {
	c := &Config{
		HTTPAddr:        ":8080",
		LogLevel:        "info",
		Currency:        "usd",
		SMTPPort:        587,
		AdminRole:       "admin",
		EnforceCapacity: true,
		PendingTTL:      24 * time.Hour,
		GatewayTimeout:  10 * time.Second,
		NotifyTimeout:   10 * time.Second,
		ExportS3Region:  "us-east-1",
		ExportS3Prefix:  "exports/registrations",
	}

	if path := os.Getenv("BOOTCAMP_CONFIG"); path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := c.loadEnv(); err != nil {
		return nil, err
	}

	if c.DatabaseURL == "" {
		c.DatabaseURL = database.ConfigFromEnv().DSN()
	}
	if c.AuthJWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	c.Currency = strings.ToLower(c.Currency)
	return c, nil
}

func (c *Config) loadFile(path string) error {
	var f fileConfig
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	if f.Port != "" {
		c.HTTPAddr = ":" + strings.TrimPrefix(f.Port, ":")
	}
	setString(&c.DatabaseURL, f.DatabaseURL)
	setString(&c.LogLevel, f.LogLevel)
	setString(&c.Currency, f.Currency)
	setString(&c.AdminRole, f.AdminRole)
	setString(&c.NATSURL, f.NATSURL)
	setString(&c.SupabaseURL, f.SupabaseURL)
	setString(&c.SMTPHost, f.SMTP.Host)
	setString(&c.SMTPFrom, f.SMTP.From)
	setString(&c.ExportS3Bucket, f.Export.Bucket)
	setString(&c.ExportS3Region, f.Export.Region)
	setString(&c.ExportS3Endpoint, f.Export.Endpoint)
	setString(&c.ExportS3Prefix, f.Export.Prefix)
	if f.SMTP.Port != 0 {
		c.SMTPPort = f.SMTP.Port
	}
	if len(f.CORSOrigins) > 0 {
		c.CORSOrigins = f.CORSOrigins
	}
	if f.EnforceCapacity != nil {
		c.EnforceCapacity = *f.EnforceCapacity
	}

	for _, d := range []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"pending_ttl", f.PendingTTL, &c.PendingTTL},
		{"gateway_timeout", f.GatewayTimeout, &c.GatewayTimeout},
		{"notify_timeout", f.NotifyTimeout, &c.NotifyTimeout},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config file %s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func (c *Config) loadEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.HTTPAddr = ":" + strings.TrimPrefix(v, ":")
	}
	setString(&c.DatabaseURL, os.Getenv("DATABASE_URL"))
	setString(&c.LogLevel, os.Getenv("LOG_LEVEL"))
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}

	setString(&c.StripeSecretKey, os.Getenv("STRIPE_SECRET_KEY"))
	setString(&c.StripePublishableKey, os.Getenv("STRIPE_PUBLISHABLE_KEY"))
	setString(&c.StripeWebhookSecret, os.Getenv("STRIPE_WEBHOOK_SECRET"))
	setString(&c.Currency, os.Getenv("CURRENCY"))

	setString(&c.SMTPHost, os.Getenv("SMTP_HOST"))
	setString(&c.SMTPUsername, os.Getenv("SMTP_USERNAME"))
	setString(&c.SMTPPassword, os.Getenv("SMTP_PASSWORD"))
	setString(&c.SMTPFrom, os.Getenv("SMTP_FROM"))
	if v := os.Getenv("SMTP_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		c.SMTPPort = n
	}

	setString(&c.AuthJWTSecret, os.Getenv("AUTH_JWT_SECRET"))
	setString(&c.SupabaseURL, os.Getenv("SUPABASE_URL"))
	setString(&c.SupabaseServiceRoleKey, os.Getenv("SUPABASE_SERVICE_ROLE_KEY"))
	setString(&c.AdminRole, os.Getenv("ADMIN_ROLE"))
	setString(&c.NATSURL, os.Getenv("NATS_URL"))

	if v := os.Getenv("ENFORCE_CAPACITY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ENFORCE_CAPACITY: %w", err)
		}
		c.EnforceCapacity = b
	}

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"PENDING_TTL", &c.PendingTTL},
		{"GATEWAY_TIMEOUT", &c.GatewayTimeout},
		{"NOTIFY_TIMEOUT", &c.NotifyTimeout},
	} {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		dur, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = dur
	}

	setString(&c.ExportS3Bucket, os.Getenv("EXPORT_S3_BUCKET"))
	setString(&c.ExportS3Region, os.Getenv("EXPORT_S3_REGION"))
	setString(&c.ExportS3Endpoint, os.Getenv("EXPORT_S3_ENDPOINT"))
	setString(&c.ExportS3Prefix, os.Getenv("EXPORT_S3_PREFIX"))
	return nil
}

// SMTPEnabled reports whether outgoing mail is configured.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// AdminAPIEnabled reports whether the auth provider's admin API can be used.
func (c *Config) AdminAPIEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceRoleKey != ""
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
