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

const transactionColumns = `t.id, t.code, t.customer_id, t.branch_id, t.staff_id,
        t.principal, t.rate, t.term_months, t.pawn_date, t.due_date, t.notes,
        t.status, t.version, t.created_at,
        TRIM(c.first_name || ' ' || c.last_name), COALESCE(c.phone, ''),
        b.name, COALESCE(NULLIF(s.full_name, ''), s.username)`

const transactionFrom = `
 FROM pawn_transactions t
 JOIN customers c ON c.id = t.customer_id
 JOIN branches b ON b.id = t.branch_id
 JOIN staff s ON s.id = t.staff_id`

const transactionSelect = `SELECT ` + transactionColumns + transactionFrom

// scanTransaction scans transactionColumns followed by any extra columns.
func scanTransaction(row scanner, extra ...any) (*model.PawnTransaction, error) {
	t := &model.PawnTransaction{}
	var notes sql.NullString
	var pawnDate, dueDate, createdAt string
	dest := []any{&t.ID, &t.Code, &t.CustomerID, &t.BranchID, &t.StaffID,
		&t.Principal, &t.Rate, &t.TermMonths, &pawnDate, &dueDate, &notes,
		&t.Status, &t.Version, &createdAt,
		&t.CustomerName, &t.CustomerPhone, &t.BranchName, &t.StaffName}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	t.Notes = notes.String
	var err error
	if t.PawnDate, err = dates.ParseDate(pawnDate); err != nil {
		return nil, err
	}
	if t.DueDate, err = dates.ParseDate(dueDate); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = dates.ParseTimestamp(createdAt); err != nil {
		return nil, err
	}
	return t, nil
}

func collectTransactions(rows *sql.Rows) ([]model.PawnTransaction, error) {
	defer rows.Close()

	var txs []model.PawnTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// InsertTransaction inserts a pawn transaction and returns its ID. Status is
// always stored as active and the version starts at zero.
func InsertTransaction(ctx context.Context, db DBTX, t *model.PawnTransaction) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO pawn_transactions
		   (code, customer_id, branch_id, staff_id, principal, rate, term_months,
		    pawn_date, due_date, notes, status, version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'active', 0, ?)`,
		t.Code, t.CustomerID, t.BranchID, t.StaffID, t.Principal, t.Rate, t.TermMonths,
		dates.FormatDate(t.PawnDate), dates.FormatDate(t.DueDate), t.Notes,
		dates.FormatTimestamp(t.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting transaction id: %w", err)
	}
	return id, nil
}

// GetTransaction returns a transaction by ID.
func GetTransaction(ctx context.Context, db DBTX, id int64) (*model.PawnTransaction, error) {
	t, err := scanTransaction(db.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return t, nil
}

// TransactionFilter narrows ListTransactions. A zero BranchID means all
// branches. Status may be a stored status or the derived "overdue", which
// needs Today.
type TransactionFilter struct {
	BranchID int64
	Status   string
	Today    time.Time
}

// ListTransactions returns transactions matching the filter, newest first.
func ListTransactions(ctx context.Context, db DBTX, f TransactionFilter) ([]model.PawnTransaction, error) {
	query := transactionSelect + ` WHERE 1 = 1`
	var args []any
	if f.BranchID != 0 {
		query += ` AND t.branch_id = ?`
		args = append(args, f.BranchID)
	}
	switch f.Status {
	case "":
	case model.TxStatusOverdue:
		query += ` AND t.status = 'active' AND t.due_date < ?`
		args = append(args, dates.FormatDate(f.Today))
	default:
		query += ` AND t.status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY t.pawn_date DESC, t.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return collectTransactions(rows)
}

// ListActiveDueBetween returns active transactions with a due date in
// [from, to], ordered by due date.
func ListActiveDueBetween(ctx context.Context, db DBTX, branchID int64, from, to time.Time) ([]model.PawnTransaction, error) {
	query := transactionSelect + ` WHERE t.status = 'active' AND t.due_date BETWEEN ? AND ?`
	args := []any{dates.FormatDate(from), dates.FormatDate(to)}
	if branchID != 0 {
		query += ` AND t.branch_id = ?`
		args = append(args, branchID)
	}
	query += ` ORDER BY t.due_date, t.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions due between: %w", err)
	}
	return collectTransactions(rows)
}

// ListActiveDueBefore returns active transactions due strictly before day.
func ListActiveDueBefore(ctx context.Context, db DBTX, branchID int64, day time.Time) ([]model.PawnTransaction, error) {
	query := transactionSelect + ` WHERE t.status = 'active' AND t.due_date < ?`
	args := []any{dates.FormatDate(day)}
	if branchID != 0 {
		query += ` AND t.branch_id = ?`
		args = append(args, branchID)
	}
	query += ` ORDER BY t.due_date, t.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing overdue transactions: %w", err)
	}
	return collectTransactions(rows)
}

// ListCreatedSince returns transactions of any status created at or after
// since, newest first.
func ListCreatedSince(ctx context.Context, db DBTX, branchID int64, since time.Time) ([]model.PawnTransaction, error) {
	query := transactionSelect + ` WHERE t.created_at >= ?`
	args := []any{dates.FormatTimestamp(since)}
	if branchID != 0 {
		query += ` AND t.branch_id = ?`
		args = append(args, branchID)
	}
	query += ` ORDER BY t.created_at DESC, t.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing recent transactions: %w", err)
	}
	return collectTransactions(rows)
}

// TransactionWithLastPayment pairs an active transaction with the date of its
// most recent qualifying payment, if any.
type TransactionWithLastPayment struct {
	model.PawnTransaction
	LastPayment *time.Time
}

// ListActiveWithLastPayment returns every active transaction with the date of
// its latest payment of one of the given types. No types means any type.
func ListActiveWithLastPayment(ctx context.Context, db DBTX, branchID int64, types ...string) ([]TransactionWithLastPayment, error) {
	sub := `SELECT MAX(p.payment_date) FROM payments p WHERE p.transaction_id = t.id`
	var args []any
	if len(types) > 0 {
		sub += ` AND p.type IN (` + placeholders(len(types)) + `)`
		for _, typ := range types {
			args = append(args, typ)
		}
	}

	query := `SELECT ` + transactionColumns + `, (` + sub + `)` + transactionFrom +
		` WHERE t.status = 'active'`
	if branchID != 0 {
		query += ` AND t.branch_id = ?`
		args = append(args, branchID)
	}
	query += ` ORDER BY t.pawn_date, t.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing active transactions with payments: %w", err)
	}
	defer rows.Close()

	var out []TransactionWithLastPayment
	for rows.Next() {
		var last sql.NullString
		t, err := scanTransaction(rows, &last)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		entry := TransactionWithLastPayment{PawnTransaction: *t}
		if last.Valid {
			d, err := dates.ParseDate(last.String)
			if err != nil {
				return nil, err
			}
			entry.LastPayment = &d
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// UpdateTransactionStatus moves an active transaction at the given version to
// a new status and bumps its version. It reports whether a row was changed;
// false means the transaction was closed or modified concurrently.
func UpdateTransactionStatus(ctx context.Context, db DBTX, id, version int64, status string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE pawn_transactions SET status = ?, version = version + 1
		 WHERE id = ? AND status = 'active' AND version = ?`,
		status, id, version,
	)
	if err != nil {
		return false, fmt.Errorf("updating transaction status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking updated rows: %w", err)
	}
	return n == 1, nil
}

// TouchTransaction bumps the version of an active transaction at the given
// version without changing its status. Used to serialize payments that do not
// close the contract.
func TouchTransaction(ctx context.Context, db DBTX, id, version int64) (bool, error) {
	return UpdateTransactionStatus(ctx, db, id, version, model.TxStatusActive)
}

// CountTransactionsOn returns the number of transactions pawned on day.
func CountTransactionsOn(ctx context.Context, db DBTX, day time.Time) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pawn_transactions WHERE pawn_date = ?`, dates.FormatDate(day),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}

// InsertPawnItem inserts one pledged item and returns its ID.
func InsertPawnItem(ctx context.Context, db DBTX, item *model.PawnItem) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO pawn_items
		   (transaction_id, category_id, name, description, weight, appraised_value, condition_notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.TransactionID, item.CategoryID, item.Name, item.Description,
		item.Weight, item.AppraisedValue, item.ConditionNotes,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting pawn item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting pawn item id: %w", err)
	}
	return id, nil
}

// ListPawnItems returns the items pledged under a transaction.
func ListPawnItems(ctx context.Context, db DBTX, transactionID int64) ([]model.PawnItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, transaction_id, category_id, name, description, weight,
		        appraised_value, condition_notes
		 FROM pawn_items WHERE transaction_id = ? ORDER BY id`, transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pawn items: %w", err)
	}
	defer rows.Close()

	var items []model.PawnItem
	for rows.Next() {
		var item model.PawnItem
		var description, conditionNotes sql.NullString
		var weight decimal.NullDecimal
		if err := rows.Scan(&item.ID, &item.TransactionID, &item.CategoryID, &item.Name,
			&description, &weight, &item.AppraisedValue, &conditionNotes); err != nil {
			return nil, fmt.Errorf("scanning pawn item: %w", err)
		}
		item.Description = description.String
		item.ConditionNotes = conditionNotes.String
		if weight.Valid {
			w := weight.Decimal
			item.Weight = &w
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
