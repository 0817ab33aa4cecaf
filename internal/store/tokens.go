package store

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/zastavljalnica/internal/dates"
)

// RevokeToken adds a token ID to the revocation list. Revocations past their
// token's expiry are pruned, measured against now.
func RevokeToken(ctx context.Context, db DBTX, jti string, expiresAt, now time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, dates.FormatTimestamp(expiresAt),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	_, _ = db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, dates.FormatTimestamp(now),
	)
	return nil
}

// IsTokenRevoked reports whether a token ID has been revoked.
func IsTokenRevoked(ctx context.Context, db DBTX, jti string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return count > 0, nil
}
