package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PawnTransaction is one loan contract collateralized by pledged items.
// Only the stored status lives here; overdue is derived at read time.
type PawnTransaction struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code"`
	CustomerID int64           `json:"customer_id"`
	BranchID   int64           `json:"branch_id"`
	StaffID    int64           `json:"staff_id"`
	Principal  decimal.Decimal `json:"principal"`
	Rate       decimal.Decimal `json:"rate"`
	TermMonths int             `json:"term_months"`
	PawnDate   time.Time       `json:"pawn_date"`
	DueDate    time.Time       `json:"due_date"`
	Notes      string          `json:"notes,omitempty"`
	Status     string          `json:"status"`
	Version    int64           `json:"-"`
	CreatedAt  time.Time       `json:"created_at"`

	// Joined fields (not always populated).
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	BranchName    string `json:"branch_name,omitempty"`
	StaffName     string `json:"staff_name,omitempty"`
}

// Stored transaction statuses.
const (
	TxStatusActive    = "active"
	TxStatusPaid      = "paid"
	TxStatusForfeited = "forfeited"
)

// TxStatusOverdue is a display status only. It is never written to the store.
const TxStatusOverdue = "overdue"

// PawnItem is one pledged object owned by a single transaction.
type PawnItem struct {
	ID             int64            `json:"id"`
	TransactionID  int64            `json:"transaction_id"`
	CategoryID     int64            `json:"category_id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Weight         *decimal.Decimal `json:"weight,omitempty"`
	AppraisedValue decimal.Decimal  `json:"appraised_value"`
	ConditionNotes string           `json:"condition_notes,omitempty"`
}

// Payment is one money movement against a transaction. Payments are never
// edited or deleted.
type Payment struct {
	ID            int64           `json:"id"`
	TransactionID int64           `json:"transaction_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	StaffID       int64           `json:"staff_id"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Payment types.
const (
	PaymentInterest   = "interest"
	PaymentPartial    = "partial_payment"
	PaymentRedemption = "redemption"
)

// ValidPaymentType reports whether t is a known payment type.
func ValidPaymentType(t string) bool {
	switch t {
	case PaymentInterest, PaymentPartial, PaymentRedemption:
		return true
	}
	return false
}
