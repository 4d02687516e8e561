package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the base server configuration.
type Config struct {
	Host          string
	Port          string
	SQLiteDBPath  string
	AppEnv        string
	AllowTestMode bool

	JWTSecret                string
	JWTAccessTokenExpirySec  int
	JWTRefreshTokenExpirySec int

	// SnapshotDebounceMs is the delay between the last mutation and the
	// history capture that records it. Bursts of edits inside this window
	// collapse into one history entry.
	SnapshotDebounceMs int
	// HistoryCap bounds the number of snapshot rows kept per schedule.
	HistoryCap int

	// DefaultTimezone seeds brand-new schedules; the UI normally overrides it
	// with the browser timezone on first load.
	DefaultTimezone string
	// DefaultThemeSlug is the preset adopted by brand-new schedules.
	DefaultThemeSlug string

	// MaintenanceCron is the cron expression for the janitor sweep
	// (unreferenced image cleanup and history re-trim).
	MaintenanceCron    string
	MaintenanceEnabled bool
}

// Load reads configuration from environment variables with defaults.
func Load() (Config, error) {
	host := envString("HOST", "127.0.0.1")
	port := envString("PORT", "9400")
	sqlitePath := envString("SQLITE_DB_PATH", "./data/schedule-maker.db")
	appEnv := envString("APP_ENV", "development")
	allowTestMode := envBool("ALLOW_TEST_MODE", false)

	jwtSecret := envString("JWT_SECRET", "")
	jwtAccessExpiry := envInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)
	jwtRefreshExpiry := envInt("JWT_REFRESH_TOKEN_EXPIRY", 2592000)

	snapshotDebounce := envInt("SNAPSHOT_DEBOUNCE_MS", 800)
	historyCap := envInt("HISTORY_CAP", 50)

	defaultTimezone := envString("DEFAULT_TIMEZONE", "UTC")
	defaultThemeSlug := envString("DEFAULT_THEME_SLUG", "elegant-blue")

	maintenanceCron := envString("MAINTENANCE_CRON", "0 3 * * *")
	maintenanceEnabled := envBool("MAINTENANCE_ENABLED", true)

	if len(strings.TrimSpace(jwtSecret)) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	if snapshotDebounce <= 0 {
		snapshotDebounce = 800
	}
	if historyCap <= 0 {
		historyCap = 50
	}

	return Config{
		Host:                     host,
		Port:                     port,
		SQLiteDBPath:             sqlitePath,
		AppEnv:                   appEnv,
		AllowTestMode:            allowTestMode,
		JWTSecret:                jwtSecret,
		JWTAccessTokenExpirySec:  jwtAccessExpiry,
		JWTRefreshTokenExpirySec: jwtRefreshExpiry,
		SnapshotDebounceMs:       snapshotDebounce,
		HistoryCap:               historyCap,
		DefaultTimezone:          defaultTimezone,
		DefaultThemeSlug:         defaultThemeSlug,
		MaintenanceCron:          maintenanceCron,
		MaintenanceEnabled:       maintenanceEnabled,
	}, nil
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return strings.EqualFold(val, "true")
}
