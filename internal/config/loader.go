package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the prompt
// queue service.
type Config struct {
	HTTPPort         int
	SQLiteDSN        string
	LogLevel         slog.Level
	DailyWorkers     int
	DecisionCacheTTL time.Duration
}

// Load parses configuration values from the current process environment.
//
// Every value has a sensible default; invalid values are accumulated and
// reported together so an operator can fix the environment in one pass.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:         8080,
		SQLiteDSN:        "file:promptqueue.db?_foreign_keys=on",
		LogLevel:         slog.LevelInfo,
		DailyWorkers:     4,
		DecisionCacheTTL: 30 * time.Second,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("PROMPTQUEUE_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "PROMPTQUEUE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("PROMPTQUEUE_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if levelValue := strings.TrimSpace(os.Getenv("PROMPTQUEUE_LOG_LEVEL")); levelValue != "" {
		level, ok := parseLogLevel(levelValue)
		if !ok {
			invalid = append(invalid, "PROMPTQUEUE_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if workersValue := strings.TrimSpace(os.Getenv("PROMPTQUEUE_DAILY_WORKERS")); workersValue != "" {
		workers, err := strconv.Atoi(workersValue)
		if err != nil || workers <= 0 {
			invalid = append(invalid, "PROMPTQUEUE_DAILY_WORKERS")
		} else {
			cfg.DailyWorkers = workers
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("PROMPTQUEUE_DECISION_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "PROMPTQUEUE_DECISION_CACHE_TTL")
		} else {
			cfg.DecisionCacheTTL = ttl
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func parseLogLevel(value string) (slog.Level, bool) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
