package config

import (
	"errors"
	"strings"

	libconfig "campusev/backend/libs/config"
)

const (
	defaultHTTPPort = "8083"
	defaultTopic    = "charging.session.events"
	defaultGroup    = "billing-service"
)

// KafkaConfig selects the session event stream.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"BILLING_KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env:"BILLING_KAFKA_TOPIC"`
	GroupID string   `yaml:"groupId" env:"BILLING_KAFKA_GROUP_ID"`
}

// Config defines billing service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"BILLING_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"BILLING_POSTGRES_DSN"`
	} `yaml:"database"`
	Kafka   KafkaConfig `yaml:"kafka"`
	Gateway struct {
		Secret string `yaml:"secret" env:"BILLING_GATEWAY_SECRET"`
	} `yaml:"gateway"`
}

// Load configuration from file/env.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = defaultHTTPPort
	cfg.Kafka.Topic = defaultTopic
	cfg.Kafka.GroupID = defaultGroup

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
		return errors.New("config: database dsn required")
	}
	if strings.TrimSpace(c.Gateway.Secret) == "" {
		return errors.New("config: gateway secret required")
	}
	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		return errors.New("config: kafka topic required when brokers are set")
	}
	return nil
}

// KafkaEnabled reports whether the ledger consumes session events.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// HTTPAddress returns :port style string.
func (c *Config) HTTPAddress() string {
	return libconfig.HTTPAddress(c.HTTP.Port, defaultHTTPPort)
}
