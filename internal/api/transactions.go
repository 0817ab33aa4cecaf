package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/ledger"
	"github.com/erazemk/zastavljalnica/internal/model"
	"github.com/erazemk/zastavljalnica/internal/store"
)

// TransactionsHandler handles pawn transaction endpoints.
type TransactionsHandler struct {
	DB     *sql.DB
	Ledger *ledger.Ledger
}

type transactionListEntry struct {
	model.PawnTransaction
	DisplayStatus string `json:"display_status"`
}

type paymentRequest struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
	Notes  string          `json:"notes"`
}

// List handles GET /api/transactions.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	status := r.URL.Query().Get("status")
	switch status {
	case "", model.TxStatusActive, model.TxStatusPaid, model.TxStatusForfeited, model.TxStatusOverdue:
	default:
		jsonError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	today := h.Ledger.Today()
	txs, err := store.ListTransactions(r.Context(), h.DB, store.TransactionFilter{
		BranchID: branchScope(claims),
		Status:   status,
		Today:    today,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]transactionListEntry, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionListEntry{PawnTransaction: tx, DisplayStatus: ledger.DeriveStatus(tx, today)})
	}
	jsonResponse(w, http.StatusOK, out)
}

// Create handles POST /api/transactions.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req ledger.PawnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BranchID == 0 {
		req.BranchID = claims.BranchID
	}
	if !canSeeBranch(claims, req.BranchID) {
		jsonError(w, http.StatusForbidden, "cannot pawn for another branch")
		return
	}
	req.StaffID = claims.StaffID

	st, err := h.Ledger.CreatePawn(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, st)
}

// Get handles GET /api/transactions/{id}. An optional as_of date evaluates
// the statement on another day.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var asOf time.Time
	if v := r.URL.Query().Get("as_of"); v != "" {
		d, err := dates.ParseDate(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		asOf = d
	}

	if err := h.checkBranch(r, id); err != nil {
		writeError(w, r, err)
		return
	}

	st, err := h.Ledger.Statement(r.Context(), id, asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, st)
}

// RecordPayment handles POST /api/transactions/{id}/payments.
func (h *TransactionsHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var body paymentRequest
	if err := decodeJSON(r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := ledger.PaymentRequest{
		TransactionID: id,
		Type:          body.Type,
		Amount:        body.Amount,
		StaffID:       GetClaims(r.Context()).StaffID,
		Notes:         body.Notes,
	}
	if body.Date != "" {
		d, err := dates.ParseDate(body.Date)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		req.Date = d
	}

	if err := h.checkBranch(r, id); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Ledger.RecordPayment(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, res)
}

// Forfeit handles POST /api/transactions/{id}/forfeit.
func (h *TransactionsHandler) Forfeit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	if err := h.checkBranch(r, id); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Ledger.Forfeit(r.Context(), id, GetClaims(r.Context()).StaffID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// checkBranch hides transactions of other branches from non-admin staff.
func (h *TransactionsHandler) checkBranch(r *http.Request, id int64) error {
	tx, err := store.GetTransaction(r.Context(), h.DB, id)
	if err != nil {
		return err
	}
	if tx == nil || !canSeeBranch(GetClaims(r.Context()), tx.BranchID) {
		return fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
	}
	return nil
}
