package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/model"
)

// CreateBranch creates a new branch.
func CreateBranch(ctx context.Context, db DBTX, name, phone string) (*model.Branch, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO branches (name, phone) VALUES (?, ?)`, name, phone,
	)
	if err != nil {
		return nil, fmt.Errorf("creating branch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting branch id: %w", err)
	}

	return GetBranch(ctx, db, id)
}

// GetBranch returns a branch by ID.
func GetBranch(ctx context.Context, db DBTX, id int64) (*model.Branch, error) {
	b, err := scanBranch(db.QueryRowContext(ctx,
		`SELECT id, name, phone, created_at FROM branches WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting branch: %w", err)
	}
	return b, nil
}

// ListBranches returns all branches.
func ListBranches(ctx context.Context, db DBTX) ([]model.Branch, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, phone, created_at FROM branches ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	defer rows.Close()

	var branches []model.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning branch: %w", err)
		}
		branches = append(branches, *b)
	}
	return branches, rows.Err()
}

func scanBranch(row scanner) (*model.Branch, error) {
	b := &model.Branch{}
	var phone sql.NullString
	var createdAt string
	if err := row.Scan(&b.ID, &b.Name, &phone, &createdAt); err != nil {
		return nil, err
	}
	b.Phone = phone.String
	var err error
	if b.CreatedAt, err = dates.ParseTimestamp(createdAt); err != nil {
		return nil, err
	}
	return b, nil
}

// CreateStaff creates a staff member.
func CreateStaff(ctx context.Context, db DBTX, username, fullName, role string, branchID int64) (*model.Staff, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO staff (username, full_name, role, branch_id) VALUES (?, ?, ?, ?)`,
		username, fullName, role, branchID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating staff: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting staff id: %w", err)
	}

	return GetStaff(ctx, db, id)
}

// GetStaff returns a staff member by ID, including deactivated ones.
func GetStaff(ctx context.Context, db DBTX, id int64) (*model.Staff, error) {
	s, err := scanStaff(db.QueryRowContext(ctx,
		`SELECT id, username, full_name, role, branch_id, created_at, deleted_at
		 FROM staff WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting staff: %w", err)
	}
	return s, nil
}

// GetStaffByUsername returns the active staff member with the given username.
func GetStaffByUsername(ctx context.Context, db DBTX, username string) (*model.Staff, error) {
	s, err := scanStaff(db.QueryRowContext(ctx,
		`SELECT id, username, full_name, role, branch_id, created_at, deleted_at
		 FROM staff WHERE username = ? AND deleted_at IS NULL`, username,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting staff by username: %w", err)
	}
	return s, nil
}

// ListStaff returns all active staff.
func ListStaff(ctx context.Context, db DBTX) ([]model.Staff, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, username, full_name, role, branch_id, created_at, deleted_at
		 FROM staff WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing staff: %w", err)
	}
	defer rows.Close()

	var staff []model.Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning staff: %w", err)
		}
		staff = append(staff, *s)
	}
	return staff, rows.Err()
}

func scanStaff(row scanner) (*model.Staff, error) {
	s := &model.Staff{}
	var createdAt string
	var deletedAt sql.NullString
	if err := row.Scan(&s.ID, &s.Username, &s.FullName, &s.Role, &s.BranchID, &createdAt, &deletedAt); err != nil {
		return nil, err
	}
	var err error
	if s.CreatedAt, err = dates.ParseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		d, err := dates.ParseTimestamp(deletedAt.String)
		if err != nil {
			return nil, err
		}
		s.DeletedAt = &d
	}
	return s, nil
}

// CreateCustomer inserts a customer. The caller supplies the code.
func CreateCustomer(ctx context.Context, db DBTX, c *model.Customer) (*model.Customer, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO customers (code, first_name, last_name, phone, id_card_no, branch_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.Code, c.FirstName, c.LastName, c.Phone, c.IDCardNo, c.BranchID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating customer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting customer id: %w", err)
	}

	return GetCustomer(ctx, db, id)
}

// GetCustomer returns a customer by ID.
func GetCustomer(ctx context.Context, db DBTX, id int64) (*model.Customer, error) {
	c, err := scanCustomer(db.QueryRowContext(ctx,
		`SELECT id, code, first_name, last_name, phone, id_card_no, branch_id, created_at
		 FROM customers WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting customer: %w", err)
	}
	return c, nil
}

// ListCustomers returns customers of a branch (0 for all branches), optionally
// filtered by a name, phone or code fragment.
func ListCustomers(ctx context.Context, db DBTX, branchID int64, search string) ([]model.Customer, error) {
	query := `SELECT id, code, first_name, last_name, phone, id_card_no, branch_id, created_at
		 FROM customers WHERE 1 = 1`
	var args []any
	if branchID != 0 {
		query += ` AND branch_id = ?`
		args = append(args, branchID)
	}
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		query += ` AND (first_name LIKE ? OR last_name LIKE ? OR phone LIKE ? OR code LIKE ?)`
		args = append(args, like, like, like, like)
	}
	query += ` ORDER BY first_name, last_name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning customer: %w", err)
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func scanCustomer(row scanner) (*model.Customer, error) {
	c := &model.Customer{}
	var phone, idCard sql.NullString
	var createdAt string
	if err := row.Scan(&c.ID, &c.Code, &c.FirstName, &c.LastName, &phone, &idCard, &c.BranchID, &createdAt); err != nil {
		return nil, err
	}
	c.Phone = phone.String
	c.IDCardNo = idCard.String
	var err error
	if c.CreatedAt, err = dates.ParseTimestamp(createdAt); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCategory creates an item category.
func CreateCategory(ctx context.Context, db DBTX, name string) (*model.Category, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO item_categories (name) VALUES (?)`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}
	return &model.Category{ID: id, Name: name}, nil
}

// GetCategory returns a category by ID.
func GetCategory(ctx context.Context, db DBTX, id int64) (*model.Category, error) {
	c := &model.Category{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name FROM item_categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by name.
func ListCategories(ctx context.Context, db DBTX) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name FROM item_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
