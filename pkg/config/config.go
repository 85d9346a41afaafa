package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/platinummonkey/displayname-picker/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Session store configuration
	Session SessionConfig

	// Host module API configuration
	Host HostConfig

	// Flow configuration
	Flow FlowConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// SessionConfig holds pending-session store configuration
type SessionConfig struct {
	// CookieName is the name of the session-identifier cookie set by the
	// identity-provider callback before this flow begins.
	CookieName string

	// RedisURL selects the Redis-backed store shared with the callback
	// process. Empty selects the in-process store.
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// TTL bounds how long an abandoned pending session is kept.
	TTL time.Duration
}

// HostConfig holds the host module API endpoint configuration
type HostConfig struct {
	BaseURL      string
	SharedSecret string
	Timeout      time.Duration
}

// FlowConfig holds the form and static asset configuration
type FlowConfig struct {
	// StaticDir is served at the flow root; it must contain index.html,
	// the form template with {kerb} and {displayname} placeholders.
	StaticDir string

	// SupportContact is appended to every error page as
	// " Please email <SupportContact> for help."
	SupportContact string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("DNP_HOST", "0.0.0.0"),
			Port:            getEnv("DNP_PORT", "8080"),
			ReadTimeout:     getEnvDuration("DNP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("DNP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("DNP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("DNP_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Session: SessionConfig{
			CookieName:    getEnv("DNP_SESSION_COOKIE_NAME", "username_mapping_session"),
			RedisURL:      getEnv("DNP_REDIS_URL", ""),
			RedisPassword: getEnv("DNP_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("DNP_REDIS_DB", 0),
			TTL:           getEnvDuration("DNP_SESSION_TTL", 15*time.Minute),
		},
		Host: HostConfig{
			BaseURL:      getEnv("DNP_HOST_API_URL", ""),
			SharedSecret: getEnv("DNP_HOST_API_SECRET", ""),
			Timeout:      getEnvDuration("DNP_HOST_API_TIMEOUT", 10*time.Second),
		},
		Flow: FlowConfig{
			StaticDir:      getEnv("DNP_STATIC_DIR", "res"),
			SupportContact: getEnv("DNP_SUPPORT_CONTACT", "support@example.com"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(getEnv("DNP_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("DNP_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Host.BaseURL == "" {
		return fmt.Errorf("host API URL is required")
	}
	if _, err := url.Parse(c.Host.BaseURL); err != nil {
		return fmt.Errorf("invalid host API URL: %w", err)
	}
	if c.Flow.StaticDir == "" {
		return fmt.Errorf("static directory is required")
	}
	if c.Flow.SupportContact == "" {
		return fmt.Errorf("support contact is required")
	}
	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
