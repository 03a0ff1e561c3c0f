package utils

import (
	"os"
	"strconv"
	"time"
)

// GetEnv returns the value of the environment variable key, or defaultValue
// when it is unset or empty.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvAsInt parses the environment variable key as an integer, falling back
// to defaultValue when the variable is unset or not a valid integer.
func GetEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvAsDuration parses the environment variable key as a time.Duration
// (e.g. "30s", "5m"), falling back to defaultValue on absence or parse error.
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
