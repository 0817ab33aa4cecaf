package store

import (
	"context"
	"testing"

	"github.com/erazemk/zastavljalnica/internal/model"
)

// Fixture is a minimal set of reference rows for tests: two branches, an
// admin, a manager and a clerk in the first branch, a clerk in the second,
// one customer per branch and one category.
type Fixture struct {
	Branch      *model.Branch
	OtherBranch *model.Branch
	Admin       *model.Staff
	Manager     *model.Staff
	Clerk       *model.Staff
	OtherClerk  *model.Staff
	Customer    *model.Customer
	OtherCust   *model.Customer
	Category    *model.Category
}

// NewFixture seeds reference rows into a test database.
func NewFixture(t *testing.T, db DBTX) *Fixture {
	t.Helper()
	ctx := context.Background()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seeding fixture: %v", err)
		}
	}

	f := &Fixture{}
	var err error
	f.Branch, err = CreateBranch(ctx, db, "Center", "021234567")
	must(err)
	f.OtherBranch, err = CreateBranch(ctx, db, "North", "027654321")
	must(err)
	f.Admin, err = CreateStaff(ctx, db, "admin", "Ana Admin", model.RoleAdmin, f.Branch.ID)
	must(err)
	f.Manager, err = CreateStaff(ctx, db, "manager", "Miha Manager", model.RoleManager, f.Branch.ID)
	must(err)
	f.Clerk, err = CreateStaff(ctx, db, "clerk", "Katja Clerk", model.RoleStaff, f.Branch.ID)
	must(err)
	f.OtherClerk, err = CreateStaff(ctx, db, "north", "Nik North", model.RoleStaff, f.OtherBranch.ID)
	must(err)
	f.Customer, err = CreateCustomer(ctx, db, &model.Customer{
		Code: "C0001", FirstName: "Somchai", LastName: "Jaidee", Phone: "0812345678", BranchID: f.Branch.ID,
	})
	must(err)
	f.OtherCust, err = CreateCustomer(ctx, db, &model.Customer{
		Code: "C0002", FirstName: "Malee", BranchID: f.OtherBranch.ID,
	})
	must(err)
	f.Category, err = CreateCategory(ctx, db, "Gold")
	must(err)
	return f
}
