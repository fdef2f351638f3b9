package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// SeedUser is a user preloaded into the memory store.
type SeedUser struct {
	ID             string `yaml:"id"`
	OrganizationID int64  `yaml:"organization_id"`
	Name           string `yaml:"name"`
}

// Config holds service settings.
type Config struct {
	HTTPAddr        string     `yaml:"http_addr"`
	DatabaseURL     string     `yaml:"database_url"`
	StoreDriver     string     `yaml:"store_driver"`
	JWTSecret       string     `yaml:"jwt_secret"`
	ShutdownSeconds int        `yaml:"shutdown_seconds"`
	SeedUsers       []SeedUser `yaml:"seed_users"`
}

// Load reads the optional YAML file named by BARSTATION_CONFIG, then applies env overrides.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:        ":8080",
		StoreDriver:     DriverPostgres,
		ShutdownSeconds: 10,
	}

	if path := os.Getenv("BARSTATION_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.DatabaseURL))
	cfg.StoreDriver = getenvDefault("STORE_DRIVER", cfg.StoreDriver)
	cfg.JWTSecret = getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", cfg.JWTSecret))
	cfg.ShutdownSeconds = getenvIntDefault("SHUTDOWN_SECONDS", cfg.ShutdownSeconds)

	return cfg, cfg.Validate()
}

// Validate checks required settings.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL or PG_DSN is required for the postgres store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("config: AUTH_JWT_SECRET is required")
	}
	for _, user := range c.SeedUsers {
		if user.ID == "" || user.OrganizationID <= 0 {
			return fmt.Errorf("config: seed user %q needs id and organization_id", user.ID)
		}
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
