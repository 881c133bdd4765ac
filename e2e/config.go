package e2e

import (
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for E2E tests
type Config struct {
	ContainerID string
	TestDir     string
	Timeout     time.Duration
	Cleanup     bool
	SearchWait  time.Duration
}

// LoadConfig loads E2E test configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		ContainerID: os.Getenv("SPE_E2E_CONTAINER_ID"),
		TestDir:     getEnvOrDefault("SPE_E2E_TEST_DIR", "E2E-Tests"),
		Timeout:     getTimeoutFromEnv("SPE_E2E_TIMEOUT", 300*time.Second),
		Cleanup:     getBoolFromEnv("SPE_E2E_CLEANUP", true),
		SearchWait:  getTimeoutFromEnv("SPE_E2E_SEARCH_WAIT", 0),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getTimeoutFromEnv parses a duration, falling back on a bad value.
func getTimeoutFromEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getBoolFromEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	result, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return result
}
