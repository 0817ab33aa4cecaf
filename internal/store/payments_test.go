package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/db"
	"github.com/erazemk/zastavljalnica/internal/model"
)

func TestSumPaymentsIsExact(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := NewFixture(t, database)

	id := insertTestTransaction(t, database, f, "P1", f.Branch.ID, dates.Date(2025, 1, 1), 1)

	total, err := SumPayments(ctx, database, id)
	if err != nil {
		t.Fatalf("SumPayments: %v", err)
	}
	if !total.IsZero() {
		t.Errorf("expected zero, got %s", total)
	}

	for _, amt := range []string{"0.10", "0.20", "100.05"} {
		InsertPayment(ctx, database, &model.Payment{
			TransactionID: id, Type: model.PaymentPartial, Amount: decimal.RequireFromString(amt),
			Date: dates.Date(2025, 1, 10), StaffID: f.Clerk.ID,
		})
	}

	total, _ = SumPayments(ctx, database, id)
	if !total.Equal(decimal.RequireFromString("100.35")) {
		t.Errorf("expected 100.35, got %s", total)
	}

	payments, _ := ListPayments(ctx, database, id)
	if len(payments) != 3 || payments[0].Type != model.PaymentPartial {
		t.Errorf("unexpected payments %+v", payments)
	}
}

func TestPaymentsOn(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := NewFixture(t, database)

	id := insertTestTransaction(t, database, f, "P1", f.Branch.ID, dates.Date(2025, 1, 1), 1)
	InsertPayment(ctx, database, &model.Payment{
		TransactionID: id, Type: model.PaymentInterest, Amount: decimal.NewFromInt(300),
		Date: dates.Date(2025, 2, 1), StaffID: f.Clerk.ID,
	})
	InsertPayment(ctx, database, &model.Payment{
		TransactionID: id, Type: model.PaymentInterest, Amount: decimal.NewFromInt(200),
		Date: dates.Date(2025, 2, 2), StaffID: f.Clerk.ID,
	})

	totals, err := PaymentsOn(ctx, database, dates.Date(2025, 2, 1))
	if err != nil {
		t.Fatalf("PaymentsOn: %v", err)
	}
	if totals.Count != 1 || !totals.Total.Equal(decimal.NewFromInt(300)) {
		t.Errorf("unexpected totals %+v", totals)
	}
}

func TestPaymentAmountMustBeKnownType(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := NewFixture(t, database)

	id := insertTestTransaction(t, database, f, "P1", f.Branch.ID, dates.Date(2025, 1, 1), 1)
	_, err := InsertPayment(ctx, database, &model.Payment{
		TransactionID: id, Type: "refund", Amount: decimal.NewFromInt(1),
		Date: dates.Date(2025, 1, 2), StaffID: f.Clerk.ID,
	})
	if err == nil {
		t.Error("expected unknown payment type to be rejected")
	}
}
