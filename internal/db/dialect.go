package db

import (
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between the supported databases.
// Queries are written with ? placeholders and rebound per dialect.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LockSuffix is appended to a SELECT that must hold the row until commit.
func (d Dialect) LockSuffix() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// GooseDialect names the dialect for the migration tool.
func (d Dialect) GooseDialect() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite3"
}

func (d Dialect) migrationsDir() string {
	return "migrations/" + string(d)
}
