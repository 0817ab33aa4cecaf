package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/model"
)

const inventorySelect = `SELECT i.id, i.code, i.name, i.category_id, i.description, i.weight,
        i.cost_price, i.selling_price, i.branch_id, i.status,
        i.source_transaction_id, i.source_pawn_item_id, i.image_mime, i.created_at,
        COALESCE(c.name, '')
 FROM inventory i
 LEFT JOIN item_categories c ON c.id = i.category_id`

func scanInventoryItem(row scanner) (*model.InventoryItem, error) {
	item := &model.InventoryItem{}
	var description, imageMime sql.NullString
	var weight decimal.NullDecimal
	var sourceTx, sourceItem sql.NullInt64
	var createdAt string
	if err := row.Scan(&item.ID, &item.Code, &item.Name, &item.CategoryID, &description, &weight,
		&item.CostPrice, &item.SellingPrice, &item.BranchID, &item.Status,
		&sourceTx, &sourceItem, &imageMime, &createdAt, &item.CategoryName); err != nil {
		return nil, err
	}
	item.Description = description.String
	item.ImageMime = imageMime.String
	if weight.Valid {
		w := weight.Decimal
		item.Weight = &w
	}
	if sourceTx.Valid {
		item.SourceTransactionID = &sourceTx.Int64
	}
	if sourceItem.Valid {
		item.SourcePawnItemID = &sourceItem.Int64
	}
	var err error
	if item.CreatedAt, err = dates.ParseTimestamp(createdAt); err != nil {
		return nil, err
	}
	return item, nil
}

func collectInventory(rows *sql.Rows) ([]model.InventoryItem, error) {
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning inventory item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// InsertInventoryItem inserts an inventory item and returns its ID. New
// items are always available.
func InsertInventoryItem(ctx context.Context, db DBTX, item *model.InventoryItem) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO inventory
		   (code, name, category_id, description, weight, cost_price, selling_price,
		    branch_id, status, source_transaction_id, source_pawn_item_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'available', ?, ?, ?)`,
		item.Code, item.Name, item.CategoryID, item.Description, item.Weight,
		item.CostPrice, item.SellingPrice, item.BranchID,
		item.SourceTransactionID, item.SourcePawnItemID,
		dates.FormatTimestamp(item.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting inventory item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting inventory item id: %w", err)
	}
	return id, nil
}

// GetInventoryItem returns an inventory item by ID.
func GetInventoryItem(ctx context.Context, db DBTX, id int64) (*model.InventoryItem, error) {
	item, err := scanInventoryItem(db.QueryRowContext(ctx, inventorySelect+` WHERE i.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting inventory item: %w", err)
	}
	return item, nil
}

// InventoryFilter narrows ListInventory. A zero BranchID means all branches.
type InventoryFilter struct {
	BranchID int64
	Status   string
	Search   string
}

// ListInventory returns inventory items matching the filter, newest first.
func ListInventory(ctx context.Context, db DBTX, f InventoryFilter) ([]model.InventoryItem, error) {
	query := inventorySelect + ` WHERE 1 = 1`
	var args []any
	if f.BranchID != 0 {
		query += ` AND i.branch_id = ?`
		args = append(args, f.BranchID)
	}
	if f.Status != "" {
		query += ` AND i.status = ?`
		args = append(args, f.Status)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + search + "%"
		query += ` AND (i.name LIKE ? OR i.code LIKE ? OR i.description LIKE ?)`
		args = append(args, like, like, like)
	}
	query += ` ORDER BY i.created_at DESC, i.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	return collectInventory(rows)
}

// ListAvailableCreatedBefore returns available items created before cutoff,
// oldest first.
func ListAvailableCreatedBefore(ctx context.Context, db DBTX, branchID int64, cutoff time.Time) ([]model.InventoryItem, error) {
	query := inventorySelect + ` WHERE i.status = 'available' AND i.created_at < ?`
	args := []any{dates.FormatTimestamp(cutoff)}
	if branchID != 0 {
		query += ` AND i.branch_id = ?`
		args = append(args, branchID)
	}
	query += ` ORDER BY i.created_at, i.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing stale inventory: %w", err)
	}
	return collectInventory(rows)
}

// CountInventoryFromTransaction counts inventory rows produced by forfeiting
// a transaction.
func CountInventoryFromTransaction(ctx context.Context, db DBTX, transactionID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory WHERE source_transaction_id = ?`, transactionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting forfeited inventory: %w", err)
	}
	return n, nil
}

// UpdateInventoryStatus moves an item from one status to another. It reports
// whether the item was in the expected status.
func UpdateInventoryStatus(ctx context.Context, db DBTX, id int64, from, to string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE inventory SET status = ? WHERE id = ? AND status = ?`, to, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("updating inventory status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking updated rows: %w", err)
	}
	return n == 1, nil
}

// SetInventoryImage stores a photo for an inventory item.
func SetInventoryImage(ctx context.Context, db DBTX, id int64, data []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE inventory SET image = ?, image_mime = ? WHERE id = ?`, data, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting inventory image: %w", err)
	}
	return nil
}

// GetInventoryImage returns the photo of an inventory item, or nil data if
// none is stored.
func GetInventoryImage(ctx context.Context, db DBTX, id int64) ([]byte, string, error) {
	var data []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM inventory WHERE id = ?`, id,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting inventory image: %w", err)
	}
	return data, mime.String, nil
}

// InsertSale records a sale and returns its ID.
func InsertSale(ctx context.Context, db DBTX, s *model.Sale) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO sales
		   (code, inventory_id, customer_id, branch_id, staff_id, price, sale_date, payment_method, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Code, s.InventoryID, s.CustomerID, s.BranchID, s.StaffID, s.Price,
		dates.FormatDate(s.Date), s.PaymentMethod, s.Notes,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting sale: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting sale id: %w", err)
	}
	return id, nil
}

// GetSaleByInventory returns the sale of an inventory item, if it was sold.
func GetSaleByInventory(ctx context.Context, db DBTX, inventoryID int64) (*model.Sale, error) {
	s := &model.Sale{}
	var customerID sql.NullInt64
	var method, notes sql.NullString
	var date string
	err := db.QueryRowContext(ctx,
		`SELECT id, code, inventory_id, customer_id, branch_id, staff_id, price,
		        sale_date, payment_method, notes
		 FROM sales WHERE inventory_id = ?`, inventoryID,
	).Scan(&s.ID, &s.Code, &s.InventoryID, &customerID, &s.BranchID, &s.StaffID, &s.Price,
		&date, &method, &notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting sale: %w", err)
	}
	if customerID.Valid {
		s.CustomerID = &customerID.Int64
	}
	s.PaymentMethod = method.String
	s.Notes = notes.String
	if s.Date, err = dates.ParseDate(date); err != nil {
		return nil, err
	}
	return s, nil
}
