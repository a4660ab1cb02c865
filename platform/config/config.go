// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// RedisConfig provides settings for the snapshot store connection.
type RedisConfig interface {
	GetRedisURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// ImportConfig provides settings for the bootstrap contact import.
type ImportConfig interface {
	GetImportURL() string
	GetImportFile() string
	GetImportTimeout() time.Duration
}

// OutreachConfig provides settings for consultants and message composition.
type OutreachConfig interface {
	GetConsultants() []string
	GetDefaultPhoneRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                string
	HTTPAddr           string
	RedisURL           string
	ImportURL          string
	ImportFile         string
	ImportTimeout      time.Duration
	Consultants        []string
	DefaultPhoneRegion string
	CORSAllowAll       bool
	CORSOrigins        []string
	CORSAllowCreds     bool
}

// RedisConfig implementation
func (c *Config) GetRedisURL() string { return c.RedisURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// ImportConfig implementation
func (c *Config) GetImportURL() string           { return c.ImportURL }
func (c *Config) GetImportFile() string          { return c.ImportFile }
func (c *Config) GetImportTimeout() time.Duration { return c.ImportTimeout }

// OutreachConfig implementation
func (c *Config) GetConsultants() []string      { return c.Consultants }
func (c *Config) GetDefaultPhoneRegion() string { return c.DefaultPhoneRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		RedisURL:           getEnv("REDIS_URL", ""),
		ImportURL:          getEnv("IMPORT_URL", ""),
		ImportFile:         getEnv("IMPORT_FILE", "contacts.csv"),
		ImportTimeout:      mustDuration(getEnv("IMPORT_TIMEOUT", "10s")),
		Consultants:        splitCSV(getEnv("CONSULTANTS", "Ana,Bruno,Carla")),
		DefaultPhoneRegion: getEnv("DEFAULT_PHONE_REGION", "BR"),
		CORSAllowAll:       corsAllowAll,
		CORSOrigins:        corsOrigins,
		CORSAllowCreds:     strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if len(cfg.Consultants) == 0 {
		return nil, fmt.Errorf("CONSULTANTS must name at least one consultant")
	}
	if cfg.ImportTimeout <= 0 {
		return nil, fmt.Errorf("IMPORT_TIMEOUT must be a positive duration")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
