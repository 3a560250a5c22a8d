package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read when the matching flag is not set.
const (
	envIssuer          = "BYU_JWT_ISSUER"
	envOpenIDConfigURL = "BYU_JWT_OPENID_CONFIG_URL"
	envCacheDuration   = "BYU_JWT_CACHE_DURATION"
	envDevelopment     = "BYU_JWT_DEVELOPMENT"
	envBasePath        = "BYU_JWT_BASE_PATH"
	envHTTPTimeout     = "BYU_JWT_HTTP_TIMEOUT"
	envClockSkew       = "BYU_JWT_CLOCK_SKEW"
	envLogLevel        = "BYU_JWT_LOG_LEVEL"
)

// loadEnvFiles loads the given .env files. Missing files are ignored and
// variables already in the environment win.
func loadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return err
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
