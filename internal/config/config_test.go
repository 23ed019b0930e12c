package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("pgpulse-exporter", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":9187" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.Name != "postgres" {
		t.Fatalf("Database.Name = %q", cfg.Database.Name)
	}
	if cfg.Database.MaxOpenConns != 5 {
		t.Fatalf("Database.MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Exporter.Namespace != "postgres" {
		t.Fatalf("Exporter.Namespace = %q", cfg.Exporter.Namespace)
	}
	if cfg.Archive.Enabled {
		t.Fatal("Archive.Enabled should default to false")
	}
	if cfg.Archive.Interval != 5*time.Minute {
		t.Fatalf("Archive.Interval = %v", cfg.Archive.Interval)
	}
	if cfg.Archive.Store.Endpoint != "localhost:9000" {
		t.Fatalf("Archive.Store.Endpoint = %q", cfg.Archive.Store.Endpoint)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"PGPULSE_PROFILE": "prod"})
	cfg, err := Load("pgpulse-exporter", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Archive.Store.UseSSL {
		t.Fatal("Archive.Store.UseSSL should default to true in prod")
	}
	if cfg.Archive.Store.AutoCreateBucket {
		t.Fatal("Archive.Store.AutoCreateBucket should default to false in prod")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"PGPULSE_PROFILE":                    "test",
		"PGPULSE_HTTP_ADDR":                  ":9999",
		"PGPULSE_HTTP_READ_TIMEOUT":          "2s",
		"PGPULSE_LOG_LEVEL":                  "error",
		"PGPULSE_DB_DSN":                     "postgres://example",
		"PGPULSE_DB_NAME":                    "orders",
		"PGPULSE_DB_MAX_OPEN_CONNS":          "42",
		"PGPULSE_SERVICE_NAME":               "pgpulse-custom",
		"PGPULSE_EXPORTER_NAMESPACE":         "pg",
		"PGPULSE_EXPORTER_FETCH_TIMEOUT":     "750ms",
		"PGPULSE_ARCHIVE_ENABLED":            "true",
		"PGPULSE_ARCHIVE_INTERVAL":           "1m",
		"PGPULSE_ARCHIVE_KEEP_SNAPSHOTS":     "48",
		"PGPULSE_ARCHIVE_ENDPOINT":           "s3.example.com",
		"PGPULSE_ARCHIVE_BUCKET":             "pgpulse-prod",
		"PGPULSE_ARCHIVE_REGION":             "us-west-2",
		"PGPULSE_ARCHIVE_ACCESS_KEY":         "abc",
		"PGPULSE_ARCHIVE_SECRET_KEY":         "def",
		"PGPULSE_ARCHIVE_USE_SSL":            "true",
		"PGPULSE_ARCHIVE_PREFIX":             "metrics",
		"PGPULSE_ARCHIVE_AUTO_CREATE_BUCKET": "false",
	})
	cfg, err := Load("pgpulse-exporter", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileTest {
		t.Fatalf("Profile = %q", cfg.Profile)
	}
	if cfg.Service.Name != "pgpulse-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %v", cfg.HTTP.ReadTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.DSN != "postgres://example" {
		t.Fatalf("Database.DSN = %q", cfg.Database.DSN)
	}
	if cfg.Database.Name != "orders" {
		t.Fatalf("Database.Name = %q", cfg.Database.Name)
	}
	if cfg.Database.MaxOpenConns != 42 {
		t.Fatalf("Database.MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Exporter.Namespace != "pg" {
		t.Fatalf("Exporter.Namespace = %q", cfg.Exporter.Namespace)
	}
	if cfg.Exporter.FetchTimeout != 750*time.Millisecond {
		t.Fatalf("Exporter.FetchTimeout = %v", cfg.Exporter.FetchTimeout)
	}
	if !cfg.Archive.Enabled {
		t.Fatal("Archive.Enabled should be true")
	}
	if cfg.Archive.Interval != time.Minute {
		t.Fatalf("Archive.Interval = %v", cfg.Archive.Interval)
	}
	if cfg.Archive.Store.Bucket != "pgpulse-prod" {
		t.Fatalf("Archive.Store.Bucket = %q", cfg.Archive.Store.Bucket)
	}
	if cfg.Archive.KeepSnapshots != 48 {
		t.Fatalf("Archive.KeepSnapshots = %d", cfg.Archive.KeepSnapshots)
	}
	if cfg.Archive.Store.Prefix != "metrics" {
		t.Fatalf("Archive.Store.Prefix = %q", cfg.Archive.Store.Prefix)
	}
}

func TestLoadRejectsInvalidProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{"PGPULSE_PROFILE": "staging"})
	if _, err := Load("pgpulse-exporter", lookup); err == nil {
		t.Fatal("expected error for invalid profile")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	lookup := mapLookup(map[string]string{"PGPULSE_HTTP_READ_TIMEOUT": "soon"})
	if _, err := Load("pgpulse-exporter", lookup); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoadRequiresBucketWhenArchiveEnabled(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"PGPULSE_ARCHIVE_ENABLED": "true",
		"PGPULSE_ARCHIVE_BUCKET":  "",
	})
	if _, err := Load("pgpulse-exporter", lookup); err == nil {
		t.Fatal("expected error for missing archive bucket")
	}
}

func TestLoadRejectsUnsafeDatabaseName(t *testing.T) {
	lookup := mapLookup(map[string]string{"PGPULSE_DB_NAME": "orders'; drop table x"})
	if _, err := Load("pgpulse-exporter", lookup); err == nil {
		t.Fatal("expected error for unsafe database name")
	}
}

func TestLoadRejectsNegativeKeepSnapshots(t *testing.T) {
	lookup := mapLookup(map[string]string{"PGPULSE_ARCHIVE_KEEP_SNAPSHOTS": "-1"})
	if _, err := Load("pgpulse-exporter", lookup); err == nil {
		t.Fatal("expected error for negative keep snapshots")
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
