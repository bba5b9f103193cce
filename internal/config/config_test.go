package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test. Load treats empty values as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BOOTCAMP_CONFIG", "PORT", "DATABASE_URL", "LOG_LEVEL", "CORS_ORIGINS",
		"STRIPE_SECRET_KEY", "STRIPE_PUBLISHABLE_KEY", "STRIPE_WEBHOOK_SECRET", "CURRENCY",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
		"AUTH_JWT_SECRET", "SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY", "ADMIN_ROLE",
		"NATS_URL", "ENFORCE_CAPACITY", "PENDING_TTL", "GATEWAY_TIMEOUT", "NOTIFY_TIMEOUT",
		"EXPORT_S3_BUCKET", "EXPORT_S3_REGION", "EXPORT_S3_ENDPOINT", "EXPORT_S3_PREFIX",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bootcamp.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.Currency != "usd" || cfg.AdminRole != "admin" || cfg.LogLevel != "info" {
		t.Errorf("currency=%q role=%q level=%q", cfg.Currency, cfg.AdminRole, cfg.LogLevel)
	}
	if !cfg.EnforceCapacity {
		t.Error("capacity enforcement should default on")
	}
	if cfg.PendingTTL != 24*time.Hour || cfg.GatewayTimeout != 10*time.Second || cfg.NotifyTimeout != 10*time.Second {
		t.Errorf("durations = %v %v %v", cfg.PendingTTL, cfg.GatewayTimeout, cfg.NotifyTimeout)
	}
	want := "host=localhost port=5432 user=postgres password=postgres dbname=bootcamp sslmode=disable"
	if cfg.DatabaseURL != want {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.SMTPEnabled() || cfg.AdminAPIEnabled() {
		t.Error("optional integrations should be disabled by default")
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "AUTH_JWT_SECRET") {
		t.Fatalf("err = %v, want AUTH_JWT_SECRET error", err)
	}
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("CURRENCY", "EUR")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("ENFORCE_CAPACITY", "false")
	t.Setenv("PENDING_TTL", "2h")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "noreply@example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-key")
	t.Setenv("DB_HOST", "db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.Currency != "eur" {
		t.Errorf("Currency = %q, want lower-cased", cfg.Currency)
	}
	if want := []string{"https://a.example.com", "https://b.example.com"}; !reflect.DeepEqual(cfg.CORSOrigins, want) {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.EnforceCapacity {
		t.Error("EnforceCapacity should be false")
	}
	if cfg.PendingTTL != 2*time.Hour {
		t.Errorf("PendingTTL = %v", cfg.PendingTTL)
	}
	if cfg.SMTPPort != 2525 || !cfg.SMTPEnabled() {
		t.Errorf("smtp port=%d enabled=%v", cfg.SMTPPort, cfg.SMTPEnabled())
	}
	if !cfg.AdminAPIEnabled() {
		t.Error("admin API should be enabled")
	}
	if !strings.Contains(cfg.DatabaseURL, "host=db ") {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
}

func TestLoad_FileOverlay(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("BOOTCAMP_CONFIG", writeFile(t, `
port = "7000"
database_url = "postgres://file/bootcamp"
currency = "gbp"
enforce_capacity = false
pending_ttl = "30m"
cors_origins = ["https://file.example.com"]

[smtp]
host = "mail.file.example.com"
port = 465
from = "tickets@file.example.com"

[export]
bucket = "registrations"
prefix = "snapshots"
`))
	t.Setenv("CURRENCY", "usd")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":7000" || cfg.DatabaseURL != "postgres://file/bootcamp" {
		t.Errorf("addr=%q dsn=%q", cfg.HTTPAddr, cfg.DatabaseURL)
	}
	if cfg.Currency != "usd" {
		t.Errorf("Currency = %q, environment should win over the file", cfg.Currency)
	}
	if cfg.EnforceCapacity || cfg.PendingTTL != 30*time.Minute {
		t.Errorf("enforce=%v ttl=%v", cfg.EnforceCapacity, cfg.PendingTTL)
	}
	if cfg.SMTPHost != "mail.file.example.com" || cfg.SMTPPort != 465 {
		t.Errorf("smtp = %q:%d", cfg.SMTPHost, cfg.SMTPPort)
	}
	if cfg.ExportS3Bucket != "registrations" || cfg.ExportS3Prefix != "snapshots" || cfg.ExportS3Region != "us-east-1" {
		t.Errorf("export = %q %q %q", cfg.ExportS3Bucket, cfg.ExportS3Prefix, cfg.ExportS3Region)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://file.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "bad env duration", env: map[string]string{"GATEWAY_TIMEOUT": "soon"}},
		{name: "bad bool", env: map[string]string{"ENFORCE_CAPACITY": "maybe"}},
		{name: "bad smtp port", env: map[string]string{"SMTP_PORT": "smtp"}},
		{name: "bad file duration", file: `notify_timeout = "ten seconds"`},
		{name: "malformed file", file: `port = `},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("AUTH_JWT_SECRET", "s3cret")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if tc.file != "" {
				t.Setenv("BOOTCAMP_CONFIG", writeFile(t, tc.file))
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("BOOTCAMP_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
