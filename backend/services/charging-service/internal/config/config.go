package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "campusev/backend/libs/config"
)

const defaultHTTPPort = "8082"

// HTTPConfig controls the listener.
type HTTPConfig struct {
	Port string `yaml:"port" env:"CHARGING_HTTP_PORT"`
}

// DatabaseConfig points at Postgres.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn" env:"CHARGING_POSTGRES_DSN"`
	MigrateOnRun bool   `yaml:"migrateOnStart" env:"CHARGING_MIGRATE_ON_START"`
}

// RedisConfig backs reserve idempotency keys.
type RedisConfig struct {
	Addr           string        `yaml:"addr" env:"CHARGING_REDIS_ADDR"`
	Password       string        `yaml:"password" env:"CHARGING_REDIS_PASSWORD"`
	DB             int           `yaml:"db" env:"CHARGING_REDIS_DB"`
	IdempotencyTTL time.Duration `yaml:"idempotencyTTL" env:"CHARGING_IDEMPOTENCY_TTL"`
}

// KafkaConfig enables session lifecycle events when brokers are set.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"CHARGING_KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env:"CHARGING_KAFKA_TOPIC"`
}

// ReservationConfig tunes the reservation engine.
type ReservationConfig struct {
	TimeZone     string        `yaml:"timeZone" env:"CHARGING_TIME_ZONE"`
	StaleAfter   time.Duration `yaml:"staleAfter" env:"CHARGING_STALE_AFTER"`
	SlotSize     time.Duration `yaml:"slotSize" env:"CHARGING_SLOT_SIZE"`
	RatePerMin   float64       `yaml:"reservePerMinute" env:"CHARGING_RESERVE_PER_MINUTE"`
	RateBurst    int           `yaml:"reserveBurst" env:"CHARGING_RESERVE_BURST"`
	WSWriteLimit time.Duration `yaml:"wsWriteTimeout" env:"CHARGING_WS_WRITE_TIMEOUT"`
}

// GatewayConfig holds the secret the api-gateway presents with identity headers.
type GatewayConfig struct {
	Secret string `yaml:"secret" env:"CHARGING_GATEWAY_SECRET"`
}

// Config defines charging service configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Reservation ReservationConfig `yaml:"reservation"`
	Gateway     GatewayConfig     `yaml:"gateway"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Port: defaultHTTPPort},
		Redis: RedisConfig{
			Addr:           "localhost:6379",
			IdempotencyTTL: 24 * time.Hour,
		},
		Kafka: KafkaConfig{Topic: "charging.session.events"},
		Reservation: ReservationConfig{
			TimeZone:     "Asia/Shanghai",
			StaleAfter:   10 * time.Minute,
			SlotSize:     20 * time.Minute,
			RatePerMin:   30,
			RateBurst:    5,
			WSWriteLimit: 10 * time.Second,
		},
	}
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database dsn required")
	}
	if strings.TrimSpace(c.Gateway.Secret) == "" {
		return errors.New("config: gateway secret required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Reservation.StaleAfter <= 0 {
		return errors.New("config: reservation staleAfter must be positive")
	}
	if s := c.Reservation.SlotSize; s <= 0 || (24*time.Hour)%s != 0 {
		return fmt.Errorf("config: slot size %s must divide a day", s)
	}
	return nil
}

// Location resolves the campus time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Reservation.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("config: time zone %q: %w", c.Reservation.TimeZone, err)
	}
	return loc, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	return libconfig.HTTPAddress(c.HTTP.Port, defaultHTTPPort)
}

// RedisEnabled reports whether idempotency keys are backed by Redis.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

// KafkaEnabled reports whether lifecycle events are published.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
