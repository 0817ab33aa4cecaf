package store

import (
	"context"
	"testing"

	"github.com/erazemk/zastavljalnica/internal/db"
	"github.com/erazemk/zastavljalnica/internal/model"
)

func TestCreateAndGetStaff(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	branch, err := CreateBranch(ctx, database, "Center", "")
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	s, err := CreateStaff(ctx, database, "somsak", "Somsak K.", model.RoleManager, branch.ID)
	if err != nil {
		t.Fatalf("CreateStaff: %v", err)
	}
	if s.Role != model.RoleManager || s.BranchID != branch.ID {
		t.Errorf("unexpected staff %+v", s)
	}

	got, err := GetStaffByUsername(ctx, database, "somsak")
	if err != nil {
		t.Fatalf("GetStaffByUsername: %v", err)
	}
	if got == nil || got.ID != s.ID {
		t.Fatalf("expected staff %d, got %+v", s.ID, got)
	}

	missing, err := GetStaffByUsername(ctx, database, "nobody")
	if err != nil {
		t.Fatalf("GetStaffByUsername: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing staff")
	}
}

func TestCreateStaffInvalidRole(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	branch, _ := CreateBranch(ctx, database, "Center", "")
	if _, err := CreateStaff(ctx, database, "x", "", "owner", branch.ID); err == nil {
		t.Error("expected check constraint to reject unknown role")
	}
}

func TestListCustomersScopedAndSearched(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := NewFixture(t, database)

	all, err := ListCustomers(ctx, database, 0, "")
	if err != nil {
		t.Fatalf("ListCustomers: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 customers, got %d", len(all))
	}

	branch, _ := ListCustomers(ctx, database, f.OtherBranch.ID, "")
	if len(branch) != 1 || branch[0].ID != f.OtherCust.ID {
		t.Errorf("expected only the north customer, got %+v", branch)
	}

	found, _ := ListCustomers(ctx, database, 0, "0812")
	if len(found) != 1 || found[0].ID != f.Customer.ID {
		t.Errorf("expected phone search to find one customer, got %+v", found)
	}
	if found[0].FullName() != "Somchai Jaidee" {
		t.Errorf("unexpected full name %q", found[0].FullName())
	}
}

func TestCategories(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateCategory(ctx, database, "Watches")
	gold, err := CreateCategory(ctx, database, "Gold")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	list, err := ListCategories(ctx, database)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Gold" {
		t.Errorf("expected categories sorted by name, got %+v", list)
	}

	got, _ := GetCategory(ctx, database, gold.ID)
	if got == nil || got.Name != "Gold" {
		t.Errorf("GetCategory = %+v", got)
	}
	missing, _ := GetCategory(ctx, database, 999)
	if missing != nil {
		t.Error("expected nil for missing category")
	}
}

func TestListBranches(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := NewFixture(t, database)

	branches, err := ListBranches(ctx, database)
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	if len(branches) != 2 || branches[0].ID != f.Branch.ID {
		t.Errorf("unexpected branches %+v", branches)
	}
	if branches[0].Phone != "021234567" {
		t.Errorf("expected phone to round-trip, got %q", branches[0].Phone)
	}
}
