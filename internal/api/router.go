package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/ledger"
	"github.com/erazemk/zastavljalnica/internal/model"
	"github.com/erazemk/zastavljalnica/internal/notify"
)

// NewRouter creates the API router with all endpoints registered. Sessions
// hold per-token read state and must outlive the router.
func NewRouter(db *sql.DB, jwtSecret string, clock dates.Clock, sessions *notify.Sessions) http.Handler {
	mux := http.NewServeMux()

	l := ledger.New(db, clock)

	authHandler := &AuthHandler{DB: db, Clock: clock, Sessions: sessions}
	transactionsHandler := &TransactionsHandler{DB: db, Ledger: l}
	inventoryHandler := &InventoryHandler{DB: db, Ledger: l}
	notificationsHandler := &NotificationsHandler{
		Aggregator: notify.NewAggregator(db, clock),
		Sessions:   sessions,
		Clock:      clock,
	}
	referenceHandler := &ReferenceHandler{DB: db, Clock: clock}

	authMW := AuthMiddleware(jwtSecret, db, clock)
	requireManager := RequireRole(model.RoleManager)

	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMW(h))
	}
	handleManager := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMW(requireManager(h)))
	}

	// Session.
	handle("GET /api/auth/me", authHandler.Me)
	handle("POST /api/auth/logout", authHandler.Logout)

	// Pawn transactions.
	handle("GET /api/transactions", transactionsHandler.List)
	handle("POST /api/transactions", transactionsHandler.Create)
	handle("GET /api/transactions/{id}", transactionsHandler.Get)
	handle("POST /api/transactions/{id}/payments", transactionsHandler.RecordPayment)
	handleManager("POST /api/transactions/{id}/forfeit", transactionsHandler.Forfeit)

	// Inventory: read and sell (all), stock (manager+).
	handle("GET /api/inventory", inventoryHandler.List)
	handleManager("POST /api/inventory", inventoryHandler.Create)
	handle("GET /api/inventory/{id}", inventoryHandler.Get)
	handle("POST /api/inventory/{id}/sell", inventoryHandler.Sell)
	handle("POST /api/inventory/{id}/reserve", inventoryHandler.Reserve)
	handle("POST /api/inventory/{id}/release", inventoryHandler.Release)
	handleManager("PUT /api/inventory/{id}/image", inventoryHandler.UploadImage)
	handle("GET /api/inventory/{id}/image", inventoryHandler.GetImage)

	// Notifications.
	handle("GET /api/notifications", notificationsHandler.List)
	handle("GET /api/notifications/summary", notificationsHandler.Summary)
	handle("GET /api/notifications/unread-count", notificationsHandler.UnreadCount)
	handle("POST /api/notifications/read-all", notificationsHandler.MarkAllRead)
	handle("POST /api/notifications/{id}/read", notificationsHandler.MarkRead)

	// Reference data.
	handle("GET /api/customers", referenceHandler.ListCustomers)
	handle("POST /api/customers", referenceHandler.CreateCustomer)
	handle("GET /api/categories", referenceHandler.ListCategories)
	handleManager("POST /api/categories", referenceHandler.CreateCategory)
	handle("GET /api/branches", referenceHandler.ListBranches)

	return mux
}
