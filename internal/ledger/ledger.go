package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/model"
	"github.com/erazemk/zastavljalnica/internal/store"
)

// Code prefixes of records the ledger creates.
const (
	codeTransaction = "P"
	codeInventory   = "I"
	codeSale        = "S"
)

// Ledger applies mutating operations to pawn transactions. Each operation
// runs as one database transaction.
type Ledger struct {
	db    *sql.DB
	clock dates.Clock
}

// New returns a ledger over db, reading "today" from clock.
func New(db *sql.DB, clock dates.Clock) *Ledger {
	return &Ledger{db: db, clock: clock}
}

// Today returns the ledger's current civil date.
func (l *Ledger) Today() time.Time {
	return dates.Today(l.clock)
}

// ItemRequest describes one pledged item of a new pawn.
type ItemRequest struct {
	CategoryID     int64            `json:"category_id"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Weight         *decimal.Decimal `json:"weight"`
	AppraisedValue decimal.Decimal  `json:"appraised_value"`
	ConditionNotes string           `json:"condition_notes"`
}

// PawnRequest describes a new pawn transaction. A zero PawnDate means today.
type PawnRequest struct {
	CustomerID int64           `json:"customer_id"`
	BranchID   int64           `json:"branch_id"`
	StaffID    int64           `json:"-"`
	Principal  decimal.Decimal `json:"principal"`
	Rate       decimal.Decimal `json:"rate"`
	TermMonths int             `json:"term_months"`
	PawnDate   time.Time       `json:"-"`
	Notes      string          `json:"notes"`
	Items      []ItemRequest   `json:"items"`
}

func (r PawnRequest) validate() error {
	switch {
	case !r.Principal.IsPositive():
		return fmt.Errorf("%w: principal must be positive", ErrInvalidPawn)
	case r.Rate.IsNegative():
		return fmt.Errorf("%w: rate must not be negative", ErrInvalidPawn)
	case r.TermMonths < 1:
		return fmt.Errorf("%w: term must be at least one month", ErrInvalidPawn)
	case len(r.Items) == 0:
		return fmt.Errorf("%w: at least one item is required", ErrInvalidPawn)
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: item %d has no name", ErrInvalidPawn, i+1)
		}
		if item.AppraisedValue.IsNegative() {
			return fmt.Errorf("%w: item %d has a negative appraised value", ErrInvalidPawn, i+1)
		}
		if item.Weight != nil && item.Weight.IsNegative() {
			return fmt.Errorf("%w: item %d has a negative weight", ErrInvalidPawn, i+1)
		}
	}
	return nil
}

// CreatePawn creates a transaction together with its items. The due date is
// fixed here and never recomputed.
func (l *Ledger) CreatePawn(ctx context.Context, req PawnRequest) (*Statement, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := l.clock.Now()
	today := dates.Day(now)
	pawnDate := today
	if !req.PawnDate.IsZero() {
		pawnDate = dates.Day(req.PawnDate)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	customer, err := store.GetCustomer(ctx, tx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: unknown customer %d", ErrInvalidPawn, req.CustomerID)
	}
	branch, err := store.GetBranch(ctx, tx, req.BranchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, fmt.Errorf("%w: unknown branch %d", ErrInvalidPawn, req.BranchID)
	}
	for i, item := range req.Items {
		category, err := store.GetCategory(ctx, tx, item.CategoryID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, fmt.Errorf("%w: item %d has unknown category %d", ErrInvalidPawn, i+1, item.CategoryID)
		}
	}

	pawn := &model.PawnTransaction{
		CustomerID: req.CustomerID,
		BranchID:   req.BranchID,
		StaffID:    req.StaffID,
		Principal:  req.Principal,
		Rate:       req.Rate,
		TermMonths: req.TermMonths,
		PawnDate:   pawnDate,
		DueDate:    dates.DueDate(pawnDate, req.TermMonths),
		Notes:      req.Notes,
		CreatedAt:  now,
	}
	id, err := store.WithUniqueCode(codeTransaction, today, func(code string) (int64, error) {
		pawn.Code = code
		return store.InsertTransaction(ctx, tx, pawn)
	})
	if err != nil {
		return nil, err
	}

	for _, item := range req.Items {
		_, err := store.InsertPawnItem(ctx, tx, &model.PawnItem{
			TransactionID:  id,
			CategoryID:     item.CategoryID,
			Name:           strings.TrimSpace(item.Name),
			Description:    item.Description,
			Weight:         item.Weight,
			AppraisedValue: item.AppraisedValue,
			ConditionNotes: item.ConditionNotes,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing pawn: %w", err)
	}

	slog.Info("pawn created", "transaction", pawn.Code, "principal", pawn.Principal.String(),
		"items", len(req.Items), "staff", req.StaffID)

	return l.Statement(ctx, id, today)
}

// Statement is a transaction with everything derived from it, all computed
// as of one date.
type Statement struct {
	Transaction model.PawnTransaction `json:"transaction"`
	Items       []model.PawnItem      `json:"items"`
	Payments    []model.Payment       `json:"payments"`
	Status      string                `json:"status"`
	Overdue     bool                  `json:"overdue"`
	Interest    Interest              `json:"interest"`
}

// Statement returns the transaction id as of asOf. A zero asOf means today.
func (l *Ledger) Statement(ctx context.Context, id int64, asOf time.Time) (*Statement, error) {
	if asOf.IsZero() {
		asOf = l.Today()
	}
	asOf = dates.Day(asOf)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	pawn, err := store.GetTransaction(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if pawn == nil {
		return nil, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	items, err := store.ListPawnItems(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	payments, err := store.ListPayments(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	totalPaid := decimal.Zero
	for _, p := range payments {
		totalPaid = totalPaid.Add(p.Amount)
	}

	return &Statement{
		Transaction: *pawn,
		Items:       items,
		Payments:    payments,
		Status:      DeriveStatus(*pawn, asOf),
		Overdue:     IsOverdue(*pawn, asOf),
		Interest:    ComputeInterest(*pawn, totalPaid, asOf),
	}, nil
}
