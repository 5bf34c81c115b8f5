package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/unclebandit/crowdfund-backend/internal/config"
)

// Open connects to the configured database and verifies the connection.
func Open(cfg *config.Config) (*sql.DB, Dialect, error) {
	switch cfg.DBDriver {
	case "sqlite":
		conn, err := OpenSQLite(cfg.SQLitePath)
		return conn, SQLite, err
	case "postgres":
		conn, err := OpenPostgres(cfg.PostgresDSN())
		return conn, Postgres, err
	}
	return nil, "", fmt.Errorf("unsupported driver %q", cfg.DBDriver)
}

func OpenPostgres(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return conn, nil
}

// OpenSQLite opens a database file. A single connection is kept so every
// transaction runs alone, which is what the ledger relies on in place of row locks.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return conn, nil
}
