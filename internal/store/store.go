// Package store holds the SQL access functions for every table. Functions
// take a DBTX so the ledger can compose them inside one database transaction.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// NewCode returns a business code: prefix, the day as YYMMDD and four random
// digits, e.g. P2506011234.
func NewCode(prefix string, day time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	return fmt.Sprintf("%s%s%04d", prefix, day.Format("060102"), n.Int64()), nil
}

// codeAttempts bounds how often WithUniqueCode retries a colliding code.
const codeAttempts = 5

// WithUniqueCode generates a code and passes it to insert, retrying with a
// fresh code while insert fails on a UNIQUE constraint.
func WithUniqueCode(prefix string, day time.Time, insert func(code string) (int64, error)) (int64, error) {
	for attempt := 1; ; attempt++ {
		code, err := NewCode(prefix, day)
		if err != nil {
			return 0, err
		}
		id, err := insert(code)
		if err == nil {
			return id, nil
		}
		if !IsUniqueViolation(err) || attempt == codeAttempts {
			return 0, err
		}
	}
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
