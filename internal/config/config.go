package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort      int
	DatabasePath    string
	UploadPath      string // Staging area for relayed data files
	JWTSecret       string
	EnableDevRoutes bool
	UploadRetention time.Duration // How long staged uploads are kept before the janitor prunes them
	JanitorSchedule string        // Standard cron expression for the staging janitor
}

// Load loads configuration from environment variables or sets defaults.
// JWT_SECRET has no default: the signing secret must be provided explicitly.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "4000")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT value %q: %w", portStr, err)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	retentionStr := getEnv("UPLOAD_RETENTION", "72h")
	retention, err := time.ParseDuration(retentionStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_RETENTION value %q: %w", retentionStr, err)
	}

	return &Config{
		ServerPort:      port,
		DatabasePath:    getEnv("DATABASE_PATH", "./users.db"),
		UploadPath:      getEnv("UPLOAD_PATH", "./uploads"),
		JWTSecret:       secret,
		EnableDevRoutes: getEnv("ENABLE_DEV_ROUTES", "false") == "true",
		UploadRetention: retention,
		JanitorSchedule: getEnv("JANITOR_SCHEDULE", "0 * * * *"),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
