package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Dates are stored as YYYY-MM-DD text,
// instants as RFC 3339 UTC text and money as decimal text.
const schema = `
CREATE TABLE IF NOT EXISTS branches (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    phone      TEXT,
    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE IF NOT EXISTS staff (
    id         INTEGER PRIMARY KEY,
    username   TEXT NOT NULL,
    full_name  TEXT NOT NULL DEFAULT '',
    role       TEXT NOT NULL DEFAULT 'staff' CHECK (role IN ('admin', 'manager', 'staff')),
    branch_id  INTEGER NOT NULL REFERENCES branches(id),
    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
    deleted_at TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_staff_username_active
    ON staff(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS customers (
    id         INTEGER PRIMARY KEY,
    code       TEXT NOT NULL UNIQUE,
    first_name TEXT NOT NULL,
    last_name  TEXT NOT NULL DEFAULT '',
    phone      TEXT,
    id_card_no TEXT,
    branch_id  INTEGER NOT NULL REFERENCES branches(id),
    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE IF NOT EXISTS item_categories (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS pawn_transactions (
    id          INTEGER PRIMARY KEY,
    code        TEXT NOT NULL UNIQUE,
    customer_id INTEGER NOT NULL REFERENCES customers(id),
    branch_id   INTEGER NOT NULL REFERENCES branches(id),
    staff_id    INTEGER NOT NULL REFERENCES staff(id),
    principal   TEXT NOT NULL,
    rate        TEXT NOT NULL,
    term_months INTEGER NOT NULL CHECK (term_months >= 1),
    pawn_date   TEXT NOT NULL,
    due_date    TEXT NOT NULL,
    notes       TEXT,
    status      TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'paid', 'forfeited')),
    version     INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pawn_transactions_status_due
    ON pawn_transactions(status, due_date);

CREATE TABLE IF NOT EXISTS pawn_items (
    id              INTEGER PRIMARY KEY,
    transaction_id  INTEGER NOT NULL REFERENCES pawn_transactions(id) ON DELETE CASCADE,
    category_id     INTEGER NOT NULL REFERENCES item_categories(id),
    name            TEXT NOT NULL,
    description     TEXT,
    weight          TEXT,
    appraised_value TEXT NOT NULL,
    condition_notes TEXT
);

CREATE TABLE IF NOT EXISTS payments (
    id             INTEGER PRIMARY KEY,
    transaction_id INTEGER NOT NULL REFERENCES pawn_transactions(id),
    type           TEXT NOT NULL CHECK (type IN ('interest', 'partial_payment', 'redemption')),
    amount         TEXT NOT NULL,
    payment_date   TEXT NOT NULL,
    staff_id       INTEGER NOT NULL REFERENCES staff(id),
    notes          TEXT,
    created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS inventory (
    id                    INTEGER PRIMARY KEY,
    code                  TEXT NOT NULL UNIQUE,
    name                  TEXT NOT NULL,
    category_id           INTEGER NOT NULL REFERENCES item_categories(id),
    description           TEXT,
    weight                TEXT,
    cost_price            TEXT NOT NULL,
    selling_price         TEXT NOT NULL,
    branch_id             INTEGER NOT NULL REFERENCES branches(id),
    status                TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'reserved', 'sold')),
    source_transaction_id INTEGER REFERENCES pawn_transactions(id),
    source_pawn_item_id   INTEGER REFERENCES pawn_items(id),
    image                 BLOB,
    image_mime            TEXT,
    created_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sales (
    id             INTEGER PRIMARY KEY,
    code           TEXT NOT NULL UNIQUE,
    inventory_id   INTEGER NOT NULL REFERENCES inventory(id),
    customer_id    INTEGER REFERENCES customers(id),
    branch_id      INTEGER NOT NULL REFERENCES branches(id),
    staff_id       INTEGER NOT NULL REFERENCES staff(id),
    price          TEXT NOT NULL,
    sale_date      TEXT NOT NULL,
    payment_method TEXT,
    notes          TEXT
);

CREATE TABLE IF NOT EXISTS notification_logs (
    id        INTEGER PRIMARY KEY,
    channel   TEXT NOT NULL CHECK (channel IN ('sms', 'line')),
    recipient TEXT NOT NULL,
    message   TEXT NOT NULL,
    success   INTEGER NOT NULL,
    sent_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: payment lookups by transaction and date drive both the
	// ledger statement and the interest-overdue alert.
	`CREATE INDEX IF NOT EXISTS idx_payments_transaction_date
	     ON payments(transaction_id, payment_date)`,
	// Migration 2: stale-inventory scans filter on status and age.
	`CREATE INDEX IF NOT EXISTS idx_inventory_status_created
	     ON inventory(status, created_at)`,
}

// EnsureSchema creates all tables and indexes if they don't already exist
// and applies pending migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
