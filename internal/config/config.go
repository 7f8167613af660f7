// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iyunix/go-jex/internal/logger"
	"github.com/iyunix/go-jex/internal/report"
)

type Config struct {
	// Destination is the URL reports are sent to. Empty keeps reports local.
	Destination string
	// Context is a static context string attached to every report.
	Context     string
	Environment string
	LogLevel    string
	// Timeout bounds a single report delivery.
	Timeout time.Duration
}

// Load reads configuration from environment variables or .env file.
// Outside production a missing .env file is not an error.
func Load(log logger.Logger) (*Config, error) {
	log = logger.OrNop(log)

	env := getEnv("ENV", getEnv("GO_ENV", ""))
	if !isProduction(env) {
		if err := godotenv.Load(); err != nil {
			log.Debug("no .env file found; continuing with environment variables")
		}
	}

	timeout, err := getEnvAsDuration("JEX_TIMEOUT", report.DefaultTimeout)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Destination: strings.TrimSpace(getEnv("JEX_DESTINATION", "")),
		Context:     getEnv("JEX_CONTEXT", ""),
		Environment: env,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Timeout:     timeout,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if isProduction(env) && cfg.Destination == "" {
		log.Warn("JEX_DESTINATION is not set; reports will only be logged locally")
	}
	return cfg, nil
}

// Validate checks the destination URL and the timeout.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("JEX_TIMEOUT must be positive")
	}
	if err := c.Options().Validate(); err != nil {
		return fmt.Errorf("JEX_DESTINATION: %w", err)
	}
	return nil
}

// Options converts the configuration into reporter options. An empty context
// stays absent.
func (c *Config) Options() report.Options {
	opts := report.Options{Destination: c.Destination}
	if c.Context != "" {
		opts.Context = report.StaticContext(c.Context)
	}
	return opts
}

func isProduction(env string) bool {
	return strings.EqualFold(env, "production")
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsDuration parses a duration such as "5s"; a bare integer is read as seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	strValue := strings.TrimSpace(getEnv(key, ""))
	if strValue == "" {
		return defaultValue, nil
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d, nil
	}
	if d, err := time.ParseDuration(strValue + "s"); err == nil {
		return d, nil
	}
	return 0, fmt.Errorf("could not parse env var %s=%q as a duration", key, strValue)
}
