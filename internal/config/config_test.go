package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/crowdfund-backend/internal/config"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := config.Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, int64(3480), cfg.RentLamportsPerByteYear)
	assert.Equal(t, 2.0, cfg.RentExemptionThreshold)
	assert.False(t, cfg.FaucetEnabled)
	assert.Equal(t, 5*time.Second, cfg.WorkerPollInterval)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Equal(t, int64(890880), cfg.Rent().MinimumBalance(0))
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/ledger.db")
	t.Setenv("FAUCET_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WORKER_POLL_INTERVAL", "250ms")

	cfg, err := config.Parse()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "/tmp/ledger.db", cfg.SQLitePath)
	assert.True(t, cfg.FaucetEnabled)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, 250*time.Millisecond, cfg.WorkerPollInterval)
}

func TestParseRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := config.Parse()
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{
		DBUser:     "ledger",
		DBPassword: "p@ss",
		DBHost:     "db",
		DBPort:     "5432",
		DBName:     "crowdfund",
		DBSSLMode:  "disable",
	}

	assert.Equal(t, "postgres://ledger:p%40ss@db:5432/crowdfund?sslmode=disable", cfg.PostgresDSN())
}
