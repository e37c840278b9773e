package config

import (
	"os"
	"strconv"
)

// Environment overrides, applied after the config file
const (
	EnvAPIURL   = "OUTREACH_API_URL"
	EnvStorage  = "OUTREACH_STORAGE"
	EnvTimeout  = "OUTREACH_TIMEOUT"
	EnvLogLevel = "OUTREACH_LOG_LEVEL"
	EnvPort     = "OUTREACH_CONSOLE_PORT"
	EnvDebug    = "OUTREACH_DEBUG"
)

// ApplyEnv overrides cfg with any OUTREACH_* variables that are set
func ApplyEnv(cfg *LocalConfig) {
	cfg.API.BaseURL = getEnv(EnvAPIURL, cfg.API.BaseURL)
	cfg.API.TimeoutSeconds = getEnvInt(EnvTimeout, cfg.API.TimeoutSeconds)
	cfg.Storage.Backend = getEnv(EnvStorage, cfg.Storage.Backend)
	cfg.Console.LogLevel = getEnv(EnvLogLevel, cfg.Console.LogLevel)
	cfg.Console.Port = getEnvInt(EnvPort, cfg.Console.Port)
}

// Debug reports whether OUTREACH_DEBUG is set to a true value
func Debug() bool {
	return getEnvBool(EnvDebug, false)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
