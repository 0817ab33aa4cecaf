// Package auth issues and verifies the bearer tokens staff use against the
// API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/erazemk/zastavljalnica/internal/model"
)

// TokenExpiry is the default token lifetime, one working shift plus slack.
const TokenExpiry = 12 * time.Hour

const issuer = "zastavljalnica"

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims identify a staff member and the branch they work in.
type Claims struct {
	StaffID  int64  `json:"sid"`
	Username string `json:"usr"`
	Role     string `json:"role"`
	BranchID int64  `json:"bid"`
	jwt.RegisteredClaims
}

// TokenID returns the unique token id used for revocation and sessions.
func (c *Claims) TokenID() string { return c.ID }

// Expiry returns the token's expiry time.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// GenerateToken signs a token for staff, valid for ttl from now.
func GenerateToken(secret string, staff *model.Staff, ttl time.Duration, now time.Time) (string, *Claims, error) {
	if secret == "" {
		return "", nil, errors.New("signing secret is empty")
	}
	if !model.ValidRole(staff.Role) {
		return "", nil, fmt.Errorf("staff %d has unknown role %q", staff.ID, staff.Role)
	}

	claims := &Claims{
		StaffID:  staff.ID,
		Username: staff.Username,
		Role:     staff.Role,
		BranchID: staff.BranchID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   staff.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", nil, fmt.Errorf("signing token: %w", err)
	}
	return signed, claims, nil
}

// ValidateToken verifies signature, issuer and expiry and returns the claims.
func ValidateToken(secret, tokenStr string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.StaffID == 0 || !model.ValidRole(claims.Role) {
		return nil, fmt.Errorf("%w: incomplete claims", ErrInvalidToken)
	}
	return claims, nil
}
