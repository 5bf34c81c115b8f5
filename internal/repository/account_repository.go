package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/unclebandit/crowdfund-backend/internal/db"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
)

// GetAccount returns the balance held at address. Unknown addresses hold nothing.
func (s *Store) GetAccount(ctx context.Context, address string) (*model.Account, error) {
	lamports, err := balance(ctx, s.q(), s.rebind(`SELECT lamports FROM accounts WHERE address = ?`), address)
	if err != nil {
		return nil, err
	}
	return &model.Account{Address: address, Lamports: lamports}, nil
}

func balance(ctx context.Context, q querier, query, address string) (int64, error) {
	var lamports int64
	err := q.QueryRowContext(ctx, query, address).Scan(&lamports)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return lamports, nil
}

// Balance reads and holds the account row until the transaction ends.
func (t *Tx) Balance(ctx context.Context, address string) (int64, error) {
	query := t.rebind(`SELECT lamports FROM accounts WHERE address = ?` + t.dialect.LockSuffix())
	return balance(ctx, t.q(), query, address)
}

// Credit adds lamports to an account, opening it if needed.
func (t *Tx) Credit(ctx context.Context, address string, lamports int64) error {
	if lamports < 0 {
		return appErrors.InvalidInput("credit must not be negative")
	}
	current, err := t.Balance(ctx, address)
	if err != nil {
		return err
	}
	if current > math.MaxInt64-lamports {
		return appErrors.InvalidInput("balance of %s overflows", address)
	}

	query := t.rebind(`
        INSERT INTO accounts (address, lamports) VALUES (?, ?)
        ON CONFLICT (address) DO UPDATE SET lamports = accounts.lamports + excluded.lamports
    `)
	if _, err := t.q().ExecContext(ctx, query, address, lamports); err != nil {
		return fmt.Errorf("credit account: %w", err)
	}
	return nil
}

func (t *Tx) debit(ctx context.Context, address string, lamports int64) error {
	query := t.rebind(`UPDATE accounts SET lamports = lamports - ? WHERE address = ? AND lamports >= ?`)
	res, err := t.q().ExecContext(ctx, query, lamports, address, lamports)
	if err != nil {
		return fmt.Errorf("debit account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit account: %w", err)
	}
	if n != 1 {
		return appErrors.InsufficientFunds("%s cannot cover %d lamports", address, lamports)
	}
	return nil
}

// lockOrder is the order account rows are locked in: sorted, without duplicates.
func lockOrder(addresses []string) []string {
	ordered := slices.Clone(addresses)
	slices.Sort(ordered)
	return slices.Compact(ordered)
}

func lockAccountsQuery(dialect db.Dialect, n int) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
	return dialect.Rebind(`SELECT address FROM accounts WHERE address IN (` + placeholders + `) ORDER BY address` + dialect.LockSuffix())
}

// LockAccounts opens any missing account rows and holds all of them until the
// transaction ends. Rows are always taken in address order, so two
// transactions touching the same accounts cannot deadlock.
func (t *Tx) LockAccounts(ctx context.Context, addresses ...string) error {
	ordered := lockOrder(addresses)
	if len(ordered) == 0 {
		return nil
	}

	open := t.rebind(`INSERT INTO accounts (address, lamports) VALUES (?, 0) ON CONFLICT (address) DO NOTHING`)
	args := make([]any, len(ordered))
	for i, address := range ordered {
		if _, err := t.q().ExecContext(ctx, open, address); err != nil {
			return fmt.Errorf("open account: %w", err)
		}
		args[i] = address
	}

	if t.dialect.LockSuffix() == "" {
		// sqlite holds the whole database for the transaction
		return nil
	}
	rows, err := t.q().QueryContext(ctx, lockAccountsQuery(t.dialect, len(ordered)), args...)
	if err != nil {
		return fmt.Errorf("lock accounts: %w", err)
	}
	defer rows.Close()
	var locked string
	for rows.Next() {
		if err := rows.Scan(&locked); err != nil {
			return fmt.Errorf("lock accounts: %w", err)
		}
	}
	return rows.Err()
}

// Transfer moves lamports between accounts. It fails without touching either
// balance when from cannot cover the amount.
func (t *Tx) Transfer(ctx context.Context, from, to string, lamports int64) error {
	if lamports < 0 {
		return appErrors.InvalidInput("transfer must not be negative")
	}
	if lamports == 0 {
		return nil
	}
	if err := t.LockAccounts(ctx, from, to); err != nil {
		return err
	}
	if from == to {
		have, err := t.Balance(ctx, from)
		if err != nil {
			return err
		}
		if have < lamports {
			return appErrors.InsufficientFunds("%s cannot cover %d lamports", from, lamports)
		}
		return nil
	}
	if err := t.debit(ctx, from, lamports); err != nil {
		return err
	}
	return t.Credit(ctx, to, lamports)
}
