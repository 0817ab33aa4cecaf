package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/model"
	"github.com/erazemk/zastavljalnica/internal/store"
)

// PaymentRequest describes a payment against a transaction. Date is the
// booked payment date; zero means today. It may be backdated but never lies
// in the future.
type PaymentRequest struct {
	TransactionID int64           `json:"-"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"-"`
	StaffID       int64           `json:"-"`
	Notes         string          `json:"notes"`
}

// PaymentResult is the recorded payment and the transaction's position
// right after it.
type PaymentResult struct {
	Payment  model.Payment `json:"payment"`
	Status   string        `json:"status"`
	Interest Interest      `json:"interest"`
}

// RecordPayment appends a payment. A redemption must cover the remaining
// balance as of today, whatever date the payment is booked on, and closes the
// transaction. The insert and
// the status change commit together, guarded by the transaction's version.
func (l *Ledger) RecordPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	if !model.ValidPaymentType(req.Type) {
		return nil, fmt.Errorf("%w: unknown payment type %q", ErrValidation, req.Type)
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	now := l.clock.Now()
	today := dates.Day(now)
	date := today
	if !req.Date.IsZero() {
		date = dates.Day(req.Date)
	}
	if date.After(today) {
		return nil, fmt.Errorf("%w: payment date %s is after today %s",
			ErrValidation, dates.FormatDate(date), dates.FormatDate(today))
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	pawn, err := store.GetTransaction(ctx, tx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if pawn == nil {
		return nil, fmt.Errorf("transaction %d: %w", req.TransactionID, ErrNotFound)
	}
	if pawn.Status != model.TxStatusActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotActive, pawn.Code, pawn.Status)
	}
	if date.Before(pawn.PawnDate) {
		return nil, fmt.Errorf("%w: payment date %s precedes pawn date %s",
			ErrValidation, dates.FormatDate(date), dates.FormatDate(pawn.PawnDate))
	}

	totalPaid, err := store.SumPayments(ctx, tx, pawn.ID)
	if err != nil {
		return nil, err
	}
	before := ComputeInterest(*pawn, totalPaid, today)
	if req.Type == model.PaymentRedemption && req.Amount.LessThan(before.Remaining) {
		return nil, fmt.Errorf("%w: remaining %s, offered %s",
			ErrInsufficientRedemption, before.Remaining.StringFixed(2), req.Amount.StringFixed(2))
	}

	payment := model.Payment{
		TransactionID: pawn.ID,
		Type:          req.Type,
		Amount:        req.Amount,
		Date:          date,
		StaffID:       req.StaffID,
		Notes:         req.Notes,
		CreatedAt:     now.UTC().Truncate(time.Second),
	}
	if payment.ID, err = store.InsertPayment(ctx, tx, &payment); err != nil {
		return nil, err
	}

	status := model.TxStatusActive
	if req.Type == model.PaymentRedemption {
		status = model.TxStatusPaid
	}
	ok, err := store.UpdateTransactionStatus(ctx, tx, pawn.ID, pawn.Version, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("recording payment on %s: %w", pawn.Code, ErrConflict)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing payment: %w", err)
	}

	slog.Info("payment recorded", "transaction", pawn.Code, "type", req.Type,
		"amount", req.Amount.String(), "status", status, "staff", req.StaffID)

	pawn.Status = status
	return &PaymentResult{
		Payment:  payment,
		Status:   DeriveStatus(*pawn, today),
		Interest: ComputeInterest(*pawn, totalPaid.Add(req.Amount), today),
	}, nil
}
