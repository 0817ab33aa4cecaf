package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/notify"
)

// NotificationsHandler serves the viewer's alerts and read state.
type NotificationsHandler struct {
	Aggregator *notify.Aggregator
	Sessions   *notify.Sessions
	Clock      dates.Clock
}

// session returns the read-tracking session bound to the caller's token.
func (h *NotificationsHandler) session(r *http.Request) *notify.Session {
	claims := GetClaims(r.Context())
	return h.Sessions.Get(claims.TokenID(), viewerOf(claims), claims.Expiry(), h.Clock.Now())
}

// List handles GET /api/notifications.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	all, err := h.Aggregator.GetAll(r.Context(), s.Viewer)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]notify.Item, 0, len(all))
	for _, a := range all {
		items = append(items, notify.Item{Alert: a, Read: s.IsRead(a.ID)})
	}
	jsonResponse(w, http.StatusOK, items)
}

// Summary handles GET /api/notifications/summary.
func (h *NotificationsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	limit := notify.DefaultSummaryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sum, err := h.Aggregator.Summary(r.Context(), h.session(r), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, sum)
}

// UnreadCount handles GET /api/notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.Aggregator.UnreadCount(r.Context(), h.session(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"unread": n})
}

// MarkRead handles POST /api/notifications/{id}/read. The id must be one of
// the caller's current alerts.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, "alert id required")
		return
	}
	if err := h.Aggregator.MarkRead(r.Context(), h.session(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"id": id})
}

// MarkAllRead handles POST /api/notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.Aggregator.MarkAllRead(r.Context(), h.session(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"marked": n})
}
