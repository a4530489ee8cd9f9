package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		unset := []string{
			"PROMPTQUEUE_HTTP_PORT",
			"PROMPTQUEUE_SQLITE_DSN",
			"PROMPTQUEUE_LOG_LEVEL",
			"PROMPTQUEUE_DAILY_WORKERS",
			"PROMPTQUEUE_DECISION_CACHE_TTL",
		}
		for _, key := range unset {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:promptqueue.db?_foreign_keys=on" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.LogLevel != slog.LevelInfo {
			t.Fatalf("expected default log level info, got %s", cfg.LogLevel)
		}
		if cfg.DailyWorkers != 4 {
			t.Fatalf("expected default worker count 4, got %d", cfg.DailyWorkers)
		}
		if cfg.DecisionCacheTTL != 30*time.Second {
			t.Fatalf("expected default cache TTL 30s, got %s", cfg.DecisionCacheTTL)
		}
	})

	t.Run("parses overridden values", func(t *testing.T) {
		t.Setenv("PROMPTQUEUE_HTTP_PORT", "9090")
		t.Setenv("PROMPTQUEUE_SQLITE_DSN", "file:/tmp/promptqueue.db")
		t.Setenv("PROMPTQUEUE_LOG_LEVEL", "debug")
		t.Setenv("PROMPTQUEUE_DAILY_WORKERS", "8")
		t.Setenv("PROMPTQUEUE_DECISION_CACHE_TTL", "2m")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:/tmp/promptqueue.db" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.LogLevel != slog.LevelDebug {
			t.Fatalf("expected log level debug, got %s", cfg.LogLevel)
		}
		if cfg.DailyWorkers != 8 {
			t.Fatalf("expected worker count 8, got %d", cfg.DailyWorkers)
		}
		if cfg.DecisionCacheTTL != 2*time.Minute {
			t.Fatalf("expected cache TTL 2m, got %s", cfg.DecisionCacheTTL)
		}
	})

	t.Run("accumulates invalid values into one error", func(t *testing.T) {
		t.Setenv("PROMPTQUEUE_HTTP_PORT", "not-a-port")
		t.Setenv("PROMPTQUEUE_LOG_LEVEL", "verbose")
		t.Setenv("PROMPTQUEUE_DAILY_WORKERS", "-1")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "invalid environment variable values: PROMPTQUEUE_HTTP_PORT, PROMPTQUEUE_LOG_LEVEL, PROMPTQUEUE_DAILY_WORKERS"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})
}
