package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string
	NATSURL     string
	APIPort     int

	AIModel      string
	AITitleModel string
	AIBaseURL    string
	AIAPIKey     string

	SandboxAPIKey   string
	SandboxTemplate string
	// SandboxTimeout is the provider-enforced lifetime of a sandbox.
	SandboxTimeout time.Duration
	// CommandTimeout bounds each shell command the agent runs.
	CommandTimeout time.Duration
	// HeartbeatPeriod must stay well below the provider's idle eviction window.
	HeartbeatPeriod time.Duration

	// MaxRounds bounds the agent loop.
	MaxRounds int
	// AppPort is the port the generated application serves on inside the sandbox.
	AppPort int

	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     getEnvOrDefault("FORGE_DATABASE_URL", "forge.db"),
		NATSURL:         getEnvOrDefault("FORGE_NATS_URL", "nats://localhost:4222"),
		APIPort:         getEnvIntOrDefault("FORGE_API_PORT", 8080),
		AIModel:         getEnvOrDefault("FORGE_AI_MODEL", "gemini-2.5-pro"),
		AITitleModel:    getEnvOrDefault("FORGE_AI_TITLE_MODEL", "gemini-2.5-flash"),
		AIBaseURL:       os.Getenv("FORGE_AI_BASE_URL"),
		AIAPIKey:        os.Getenv("FORGE_AI_API_KEY"),
		SandboxAPIKey:   os.Getenv("FORGE_SANDBOX_API_KEY"),
		SandboxTemplate: getEnvOrDefault("FORGE_SANDBOX_TEMPLATE", "forge-nextjs"),
		SandboxTimeout:  getEnvDurationOrDefault("FORGE_SANDBOX_TIMEOUT", 15*time.Minute),
		CommandTimeout:  getEnvDurationOrDefault("FORGE_COMMAND_TIMEOUT", 5*time.Minute),
		HeartbeatPeriod: getEnvDurationOrDefault("FORGE_HEARTBEAT_PERIOD", 2*time.Minute),
		MaxRounds:       getEnvIntOrDefault("FORGE_MAX_ROUNDS", 20),
		AppPort:         getEnvIntOrDefault("FORGE_APP_PORT", 3000),
		Debug:           getEnvBoolOrDefault("FORGE_DEBUG", false),
	}

	if cfg.AIAPIKey == "" {
		return nil, fmt.Errorf("FORGE_AI_API_KEY environment variable is required")
	}
	if cfg.SandboxAPIKey == "" {
		return nil, fmt.Errorf("FORGE_SANDBOX_API_KEY environment variable is required")
	}
	if cfg.HeartbeatPeriod >= cfg.SandboxTimeout {
		return nil, fmt.Errorf("heartbeat period %v must be shorter than sandbox timeout %v",
			cfg.HeartbeatPeriod, cfg.SandboxTimeout)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
