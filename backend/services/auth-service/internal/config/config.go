package config

import (
	"errors"
	"strings"
	"time"

	libconfig "campusev/backend/libs/config"
)

const defaultHTTPPort = "8080"

// HTTPConfig controls the listener.
type HTTPConfig struct {
	Port string `yaml:"port" env:"AUTH_HTTP_PORT"`
}

// DatabaseConfig points at the campus Postgres.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"AUTH_POSTGRES_DSN"`
}

// JWTConfig controls issued tokens.
type JWTConfig struct {
	Secret    string        `yaml:"secret" env:"AUTH_JWT_SECRET"`
	ExpiresIn time.Duration `yaml:"expiresIn" env:"AUTH_JWT_EXPIRES_IN"`
}

// Config represents service configuration loaded from YAML/env.
type Config struct {
	HTTP       HTTPConfig     `yaml:"http"`
	Database   DatabaseConfig `yaml:"database"`
	JWT        JWTConfig      `yaml:"jwt"`
	BcryptCost int            `yaml:"bcryptCost" env:"AUTH_BCRYPT_COST"`
}

// Load reads configuration using the shared config loader.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{Port: defaultHTTPPort},
		JWT:  JWTConfig{ExpiresIn: time.Hour},
	}
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database DSN is required")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: jwt secret is required")
	}
	if c.JWT.ExpiresIn <= 0 {
		c.JWT.ExpiresIn = time.Hour
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	return libconfig.HTTPAddress(c.HTTP.Port, defaultHTTPPort)
}
