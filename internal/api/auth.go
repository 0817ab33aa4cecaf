package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/notify"
	"github.com/erazemk/zastavljalnica/internal/store"
)

// AuthHandler handles token session endpoints. Tokens themselves are issued
// from the command line.
type AuthHandler struct {
	DB       *sql.DB
	Clock    dates.Clock
	Sessions *notify.Sessions
}

type meResponse struct {
	StaffID   int64  `json:"staff_id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	BranchID  int64  `json:"branch_id"`
	ExpiresAt string `json:"expires_at"`
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	staff, err := store.GetStaff(r.Context(), h.DB, claims.StaffID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if staff == nil || staff.DeletedAt != nil {
		jsonError(w, http.StatusUnauthorized, "staff member no longer exists")
		return
	}

	jsonResponse(w, http.StatusOK, meResponse{
		StaffID:   staff.ID,
		Username:  staff.Username,
		FullName:  staff.FullName,
		Role:      claims.Role,
		BranchID:  claims.BranchID,
		ExpiresAt: dates.FormatTimestamp(claims.Expiry()),
	})
}

// Logout handles POST /api/auth/logout. The token is revoked and its read
// state discarded.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	if err := store.RevokeToken(r.Context(), h.DB, claims.TokenID(), claims.Expiry(), h.Clock.Now()); err != nil {
		writeError(w, r, err)
		return
	}
	h.Sessions.Delete(claims.TokenID())

	slog.Info("staff logged out", "staff", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}
