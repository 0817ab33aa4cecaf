package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/model"
)

// InsertPayment appends a payment and returns its ID.
func InsertPayment(ctx context.Context, db DBTX, p *model.Payment) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO payments (transaction_id, type, amount, payment_date, staff_id, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.TransactionID, p.Type, p.Amount, dates.FormatDate(p.Date), p.StaffID, p.Notes,
		dates.FormatTimestamp(p.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting payment id: %w", err)
	}
	return id, nil
}

// ListPayments returns the payments of a transaction in the order they were made.
func ListPayments(ctx context.Context, db DBTX, transactionID int64) ([]model.Payment, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, transaction_id, type, amount, payment_date, staff_id, notes, created_at
		 FROM payments WHERE transaction_id = ? ORDER BY payment_date, id`, transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var p model.Payment
		var notes sql.NullString
		var date, createdAt string
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.Type, &p.Amount, &date,
			&p.StaffID, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		p.Notes = notes.String
		if p.Date, err = dates.ParseDate(date); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = dates.ParseTimestamp(createdAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// SumPayments returns the total paid against a transaction. Amounts are
// summed as decimals, not by SQLite.
func SumPayments(ctx context.Context, db DBTX, transactionID int64) (decimal.Decimal, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT amount FROM payments WHERE transaction_id = ?`, transactionID,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing payments: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scanning payment amount: %w", err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

// PaymentTotals is the count and sum of payments over some period.
type PaymentTotals struct {
	Count int
	Total decimal.Decimal
}

// PaymentsOn returns the count and sum of all payments dated day.
func PaymentsOn(ctx context.Context, db DBTX, day time.Time) (PaymentTotals, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT amount FROM payments WHERE payment_date = ?`, dates.FormatDate(day),
	)
	if err != nil {
		return PaymentTotals{}, fmt.Errorf("listing payments on day: %w", err)
	}
	defer rows.Close()

	totals := PaymentTotals{Total: decimal.Zero}
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return PaymentTotals{}, fmt.Errorf("scanning payment amount: %w", err)
		}
		totals.Count++
		totals.Total = totals.Total.Add(amount)
	}
	return totals, rows.Err()
}
