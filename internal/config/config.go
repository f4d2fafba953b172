// Package config loads and validates environment-based configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cartoway/router-demo/internal/modes"
	"github.com/cartoway/router-demo/internal/routing"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	// Routing backend.
	RouterAPIURL  string
	RouterAPIKey  string
	RouterTimeout time.Duration

	Port   int
	Locale string // "en" or "fr"

	// EnabledModes is the configured mode list; empty means every known mode.
	EnabledModes []routing.TransportMode

	SessionTTL time.Duration

	// CapabilityRefresh is a cron spec for re-reading the backend's modes.
	// Empty disables the refresh.
	CapabilityRefresh string

	CORSAllowOrigins []string
	Debug            bool
}

// Load reads an optional .env file, then the environment. Variables already
// set in the environment take precedence over the file.
// Returns a ConfigError for any invalid value.
func Load() (*Config, error) {
	// A missing .env file is the normal production case.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		RouterAPIURL:      envOr("ROUTER_API_URL", routing.DefaultBaseURL),
		RouterAPIKey:      envOr("ROUTER_API_KEY", "demo"),
		Locale:            strings.ToLower(envOr("LOCALE", "en")),
		EnabledModes:      modes.Split(os.Getenv("ENABLED_TRANSPORT_MODES")),
		CapabilityRefresh: strings.TrimSpace(os.Getenv("CAPABILITY_REFRESH")),
		CORSAllowOrigins:  splitList(envOr("CORS_ALLOW_ORIGINS", "*")),
	}

	var err error
	if cfg.RouterTimeout, err = durationEnv("ROUTER_TIMEOUT", routing.DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}

	portStr := os.Getenv("PORT")
	if portStr == "" {
		cfg.Port = 8080
	} else {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, &ConfigError{Field: "PORT", Message: "must be a valid integer"}
		}
		cfg.Port = port
	}

	if raw := os.Getenv("DEBUG"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &ConfigError{Field: "DEBUG", Message: "must be a boolean"}
		}
		cfg.Debug = b
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate re-checks fields on an already-constructed Config.
func (c *Config) Validate() error {
	var errs []error
	if c.RouterAPIURL == "" {
		errs = append(errs, &ConfigError{Field: "ROUTER_API_URL", Message: "cannot be empty"})
	} else if !strings.HasPrefix(c.RouterAPIURL, "http://") && !strings.HasPrefix(c.RouterAPIURL, "https://") {
		errs = append(errs, &ConfigError{Field: "ROUTER_API_URL", Message: "must be an http or https URL"})
	}
	if c.RouterTimeout <= 0 {
		errs = append(errs, &ConfigError{Field: "ROUTER_TIMEOUT", Message: "must be positive"})
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"})
	}
	if c.Locale != "en" && c.Locale != "fr" {
		errs = append(errs, &ConfigError{Field: "LOCALE", Message: `must be "en" or "fr"`})
	}
	if c.SessionTTL < 0 {
		errs = append(errs, &ConfigError{Field: "SESSION_TTL", Message: "cannot be negative"})
	}
	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string { return ":" + strconv.Itoa(c.Port) }

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// durationEnv reads a Go duration string like "10s" or "30m".
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be a duration such as 10s or 30m"}
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
