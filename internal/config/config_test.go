package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENHANCELY_API_KEY", "")
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIEndpoint != "https://api.enhancely.ai" {
		t.Fatalf("APIEndpoint = %q", cfg.APIEndpoint)
	}
	if cfg.RequestTimeout != 10*time.Second || cfg.ConnectTimeout != 5*time.Second {
		t.Fatalf("unexpected timeouts %s/%s", cfg.RequestTimeout, cfg.ConnectTimeout)
	}
	if cfg.StorageType != "bbolt" || cfg.SyncInterval != time.Hour {
		t.Fatalf("unexpected storage/sync defaults %q %s", cfg.StorageType, cfg.SyncInterval)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("ENHANCELY_API_KEY", "  sk_live_abcdef123  ")
	t.Setenv("ENHANCELY_API_ENDPOINT", "https://staging.enhancely.test/")
	t.Setenv("SYNC_INTERVAL", "60")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "sk_live_abcdef123" {
		t.Fatalf("APIKey = %q", cfg.APIKey)
	}
	if cfg.APIEndpoint != "https://staging.enhancely.test" {
		t.Fatalf("APIEndpoint = %q", cfg.APIEndpoint)
	}
	if cfg.SyncInterval != time.Minute {
		t.Fatalf("SyncInterval = %s", cfg.SyncInterval)
	}
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("ENHANCELY_API_KEY", "from-env")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--api-key", "from-flag", "--storage-type", "none", "--timeout", "3"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "from-flag" || cfg.StorageType != "none" {
		t.Fatalf("flags not applied: key=%q storage=%q", cfg.APIKey, cfg.StorageType)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Fatalf("RequestTimeout = %s", cfg.RequestTimeout)
	}
}

func TestLoadRejectsInvalidDurations(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "0")
	if _, err := Load(nil); err == nil || !strings.Contains(err.Error(), "request_timeout_seconds") {
		t.Fatalf("expected request timeout validation error, got %v", err)
	}
}

func TestRedactedMasksAPIKey(t *testing.T) {
	cfg := Config{APIKey: "sk_live_abcdef123"}
	red := cfg.Redacted()
	if strings.Contains(red.APIKey, "abcdef") {
		t.Fatalf("API key leaked: %q", red.APIKey)
	}
	if cfg.APIKey != "sk_live_abcdef123" {
		t.Fatalf("Redacted must not modify the receiver")
	}
}
