// Package config provides application configuration loaded from environment
// variables.
package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds the stand-in store connection settings.
type DatabaseConfig struct {
	// DSN: a postgres:// URL selects the postgres driver, anything else is
	// treated as a sqlite DSN.
	DSN   string
	Debug bool
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool
	Migrations bool
	SeedDemo   bool

	// SessionSecret signs the session cookie.
	SessionSecret string
	// SessionTTL is the idle session lifetime in minutes.
	SessionTTL int

	// BackendURL points the portal at a deployed invoice backend. Empty
	// means the in-process stand-in store serves both roles.
	BackendURL string
}

// Load reads configuration from environment variables with development
// defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			DSN:   getEnv("DATABASE_DSN", "file:paylink.db?_fk=1"),
			Debug: getEnvBool("DB_DEBUG", false),
		},
		App: AppConfig{
			Dev:           getEnvBool("DEV", true),
			Migrations:    getEnvBool("MIGRATIONS", true),
			SeedDemo:      getEnvBool("SEED_DEMO", true),
			SessionSecret: getEnv("SESSION_SECRET", "devsessionsecret"),
			SessionTTL:    getEnvInt("SESSION_TTL_MINUTES", 30),
			BackendURL:    getEnv("BACKEND_URL", ""),
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a
// default. Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
