package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/erazemk/zastavljalnica/internal/db"
	"github.com/erazemk/zastavljalnica/internal/model"
)

func TestNewCode(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	code, err := NewCode("P", day)
	if err != nil {
		t.Fatalf("NewCode: %v", err)
	}
	if !regexp.MustCompile(`^P250601\d{4}$`).MatchString(code) {
		t.Errorf("unexpected code %q", code)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := NewFixture(t, database)

	_, err := CreateCustomer(ctx, database, &model.Customer{
		Code: f.Customer.Code, FirstName: "Dup", BranchID: f.Branch.ID,
	})
	if err == nil {
		t.Fatal("expected duplicate code to fail")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false, want true", err)
	}

	if IsUniqueViolation(nil) {
		t.Error("IsUniqueViolation(nil) = true")
	}
}

func TestPlaceholders(t *testing.T) {
	tests := map[int]string{0: "", 1: "?", 3: "?, ?, ?"}
	for n, want := range tests {
		if got := placeholders(n); got != want {
			t.Errorf("placeholders(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestWithUniqueCodeRetriesCollisions(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := NewFixture(t, database)
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	calls := 0
	id, err := WithUniqueCode("C", day, func(code string) (int64, error) {
		calls++
		if calls == 1 {
			// Force a collision with an existing customer code.
			code = f.Customer.Code
		}
		c, err := CreateCustomer(ctx, database, &model.Customer{Code: code, FirstName: "New", BranchID: f.Branch.ID})
		if err != nil {
			return 0, err
		}
		return c.ID, nil
	})
	if err != nil {
		t.Fatalf("WithUniqueCode: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
	if id == 0 {
		t.Error("expected an id")
	}
}
