// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/unclebandit/crowdfund-backend/internal/rent"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBName     string `env:"DB_NAME"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"crowdfund.db"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"crowdfund.events"`

	RentLamportsPerByteYear int64   `env:"RENT_LAMPORTS_PER_BYTE_YEAR" envDefault:"3480"`
	RentExemptionThreshold  float64 `env:"RENT_EXEMPTION_THRESHOLD" envDefault:"2.0"`

	FaucetEnabled     bool  `env:"FAUCET_ENABLED" envDefault:"false"`
	FaucetMaxLamports int64 `env:"FAUCET_MAX_LAMPORTS" envDefault:"2000000000"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"5s"`
	WorkerMaxRetries   int           `env:"WORKER_MAX_RETRIES" envDefault:"3"`
	WorkerBatchSize    int           `env:"WORKER_BATCH_SIZE" envDefault:"100"`
}

// Load reads .env files (when present) into the process environment, then
// parses the environment. The bool reports whether a .env file was found.
func Load(files ...string) (*Config, bool, error) {
	found := godotenv.Load(files...) == nil
	cfg, err := Parse()
	return cfg, found, err
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.RentLamportsPerByteYear < 0 || c.RentExemptionThreshold < 0 {
		return fmt.Errorf("rent parameters must not be negative")
	}
	if c.FaucetMaxLamports < 0 {
		return fmt.Errorf("FAUCET_MAX_LAMPORTS must not be negative")
	}
	if c.WorkerBatchSize <= 0 {
		return fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	return nil
}

// PostgresDSN assembles the connection URL from the DB_* settings.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

func (c *Config) Rent() rent.Rent {
	return rent.Rent{
		LamportsPerByteYear: c.RentLamportsPerByteYear,
		ExemptionThreshold:  c.RentExemptionThreshold,
	}
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
