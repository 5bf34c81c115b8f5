// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unclebandit/crowdfund-backend/internal/db"
)

// Open returns a migrated SQLite database living in the test's temp dir.
// The database is closed when the test finishes.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.Migrate(conn, db.SQLite))
	return conn
}
