package config

import (
	"errors"
	"strings"
	"time"

	libconfig "campusev/backend/libs/config"
)

const defaultHTTPPort = "8000"

// HTTPConfig controls the listener.
type HTTPConfig struct {
	Port string `yaml:"port" env:"API_GATEWAY_HTTP_PORT"`
}

// JWTConfig must match auth-service.
type JWTConfig struct {
	Secret string `yaml:"secret" env:"API_GATEWAY_JWT_SECRET"`
}

// ServicesConfig lists upstream base URLs and the secret that
// authenticates the gateway to them.
type ServicesConfig struct {
	InternalSecret string `yaml:"internalSecret" env:"API_GATEWAY_INTERNAL_SECRET"`
	AuthURL     string `yaml:"authUrl" env:"AUTH_SERVICE_URL"`
	ChargingURL string `yaml:"chargingUrl" env:"CHARGING_SERVICE_URL"`
	BillingURL  string `yaml:"billingUrl" env:"BILLING_SERVICE_URL"`
}

// HTTPClientConfig tunes upstream calls.
type HTTPClientConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"API_GATEWAY_HTTP_TIMEOUT"`
}

// Config defines gateway configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	JWT        JWTConfig        `yaml:"jwt"`
	Services   ServicesConfig   `yaml:"services"`
	HTTPClient HTTPClientConfig `yaml:"httpClient"`
}

// Load configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{Port: defaultHTTPPort},
		Services: ServicesConfig{
			AuthURL:     "http://localhost:8080",
			ChargingURL: "http://localhost:8082",
			BillingURL:  "http://localhost:8083",
		},
		HTTPClient: HTTPClientConfig{Timeout: 5 * time.Second},
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
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: jwt secret required")
	}
	if strings.TrimSpace(c.Services.InternalSecret) == "" {
		return errors.New("config: internal secret required")
	}
	if c.Services.AuthURL == "" || c.Services.ChargingURL == "" || c.Services.BillingURL == "" {
		return errors.New("config: upstream service urls required")
	}
	if c.HTTPClient.Timeout <= 0 {
		c.HTTPClient.Timeout = 5 * time.Second
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	return libconfig.HTTPAddress(c.HTTP.Port, defaultHTTPPort)
}
