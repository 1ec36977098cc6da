// Package config provides configuration for the orchestrator.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the orchestrator configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Arena backend (environment provisioning + browser automation)
	ArenaBaseURL string

	// Model gateway (OpenAI-compatible) defaults; a caller-supplied key in
	// the run request overrides GatewayAPIKey for that run only.
	GatewayBaseURL string
	GatewayAPIKey  string

	// Execution strategy
	UseRealArena bool

	// Progress push (optional; empty disables)
	ProgressURL string

	// Budgets and timeouts
	ProvisionTimeout time.Duration
	StepCallTimeout  time.Duration
	ModelTimeout     time.Duration
	DefaultMaxSteps  int
	DefaultRunBudget time.Duration

	// Concurrency
	MaxConcurrentRuns int

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:          getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:       getEnv("DATABASE_URL", "file:orchestrator.db?cache=shared&mode=rwc"),
		ArenaBaseURL:      getEnv("ARENA_BASE_URL", "http://localhost:8100"),
		GatewayBaseURL:    getEnv("GATEWAY_BASE_URL", "http://localhost:4000"),
		GatewayAPIKey:     getEnv("GATEWAY_API_KEY", ""),
		UseRealArena:      getEnvBool("USE_REAL_ARENA", false),
		ProgressURL:       getEnv("PROGRESS_URL", ""),
		ProvisionTimeout:  time.Duration(getEnvInt("PROVISION_TIMEOUT_MS", 30000)) * time.Millisecond,
		StepCallTimeout:   time.Duration(getEnvInt("STEP_CALL_TIMEOUT_MS", 15000)) * time.Millisecond,
		ModelTimeout:      time.Duration(getEnvInt("MODEL_TIMEOUT_MS", 60000)) * time.Millisecond,
		DefaultMaxSteps:   getEnvInt("DEFAULT_MAX_STEPS", 20),
		DefaultRunBudget:  time.Duration(getEnvInt("RUN_BUDGET_MS", 300000)) * time.Millisecond,
		MaxConcurrentRuns: getEnvInt("MAX_CONCURRENT_RUNS", 8),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
