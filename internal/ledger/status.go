// Package ledger owns the lifecycle of pawn transactions: status derivation,
// interest, payments, redemption and forfeiture into inventory.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/model"
)

// DeriveStatus returns the display status of a transaction on today: the
// stored status, except that an active transaction past its due date is
// overdue.
func DeriveStatus(tx model.PawnTransaction, today time.Time) string {
	if IsOverdue(tx, today) {
		return model.TxStatusOverdue
	}
	return tx.Status
}

// IsOverdue reports whether an active transaction's due date is before today.
// A transaction due today is not overdue.
func IsOverdue(tx model.PawnTransaction, today time.Time) bool {
	return tx.Status == model.TxStatusActive && dates.Day(tx.DueDate).Before(dates.Day(today))
}

var hundred = decimal.NewFromInt(100)

// Interest is the money position of a transaction as of one date.
type Interest struct {
	AsOf          time.Time       `json:"as_of"`
	DaysElapsed   int             `json:"days_elapsed"`
	MonthsElapsed int             `json:"months_elapsed"`
	Interest      decimal.Decimal `json:"interest"`
	TotalDue      decimal.Decimal `json:"total_due"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	// Remaining is TotalDue minus TotalPaid and goes negative on overpayment.
	Remaining decimal.Decimal `json:"remaining"`
}

// DisplayRemaining is Remaining floored at zero.
func (i Interest) DisplayRemaining() decimal.Decimal {
	if i.Remaining.IsNegative() {
		return decimal.Zero
	}
	return i.Remaining
}

// ComputeInterest computes interest accrued from the pawn date to asOf. Every
// started 30-day month is charged in full.
func ComputeInterest(tx model.PawnTransaction, totalPaid decimal.Decimal, asOf time.Time) Interest {
	days := dates.DaysBetween(tx.PawnDate, asOf)
	if days < 0 {
		days = 0
	}
	months := dates.MonthsElapsed(days)
	interest := MonthlyInterest(tx).Mul(decimal.NewFromInt(int64(months)))
	totalDue := tx.Principal.Add(interest)
	return Interest{
		AsOf:          dates.Day(asOf),
		DaysElapsed:   days,
		MonthsElapsed: months,
		Interest:      interest,
		TotalDue:      totalDue,
		TotalPaid:     totalPaid,
		Remaining:     totalDue.Sub(totalPaid),
	}
}

// MonthlyInterest is the interest charged for one month: principal × rate/100.
func MonthlyInterest(tx model.PawnTransaction) decimal.Decimal {
	return tx.Principal.Mul(tx.Rate).Div(hundred)
}
