package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/unclebandit/crowdfund-backend/internal/db"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the ledger's durable storage. Reads run directly against the
// database; writes happen inside WithTx.
type Store struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewStore(conn *sql.DB, dialect db.Dialect) *Store {
	return &Store{DB: conn, Dialect: dialect}
}

// Tx is one all-or-nothing unit of ledger work. It is only valid inside the
// WithTx callback that received it.
type Tx struct {
	tx      *sql.Tx
	dialect db.Dialect
}

// WithTx runs fn in a transaction, committing when fn returns nil and rolling
// back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx LedgerTx) error) (err error) {
	sqlTx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{tx: sqlTx, dialect: s.Dialect}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) q() querier { return s.DB }
func (t *Tx) q() querier    { return t.tx }

func (s *Store) rebind(query string) string { return s.Dialect.Rebind(query) }
func (t *Tx) rebind(query string) string    { return t.dialect.Rebind(query) }

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
