package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/model"
	"github.com/erazemk/zastavljalnica/internal/store"
)

// InventoryRequest describes an item entered into inventory directly by staff.
type InventoryRequest struct {
	Name         string           `json:"name"`
	CategoryID   int64            `json:"category_id"`
	Description  string           `json:"description"`
	Weight       *decimal.Decimal `json:"weight"`
	CostPrice    decimal.Decimal  `json:"cost_price"`
	SellingPrice decimal.Decimal  `json:"selling_price"`
	BranchID     int64            `json:"branch_id"`
}

// AddInventory creates an available inventory item.
func (l *Ledger) AddInventory(ctx context.Context, req InventoryRequest) (*model.InventoryItem, error) {
	req.Name = strings.TrimSpace(req.Name)
	switch {
	case req.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	case req.CostPrice.IsNegative() || req.SellingPrice.IsNegative():
		return nil, fmt.Errorf("%w: prices must not be negative", ErrValidation)
	}

	now := l.clock.Now()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	category, err := store.GetCategory(ctx, tx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("%w: unknown category %d", ErrValidation, req.CategoryID)
	}
	branch, err := store.GetBranch(ctx, tx, req.BranchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, fmt.Errorf("%w: unknown branch %d", ErrValidation, req.BranchID)
	}

	inv := &model.InventoryItem{
		Name:         req.Name,
		CategoryID:   req.CategoryID,
		Description:  req.Description,
		Weight:       req.Weight,
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
		BranchID:     req.BranchID,
		CreatedAt:    now,
	}
	id, err := store.WithUniqueCode(codeInventory, dates.Day(now), func(code string) (int64, error) {
		inv.Code = code
		return store.InsertInventoryItem(ctx, tx, inv)
	})
	if err != nil {
		return nil, err
	}

	created, err := store.GetInventoryItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing inventory item: %w", err)
	}
	return created, nil
}

// SaleRequest describes selling an inventory item. A zero Price means the
// item's selling price; a zero Date means today.
type SaleRequest struct {
	InventoryID   int64           `json:"-"`
	CustomerID    *int64          `json:"customer_id"`
	StaffID       int64           `json:"-"`
	Price         decimal.Decimal `json:"price"`
	Date          time.Time       `json:"-"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes"`
}

// SellInventory records a sale and marks the item sold. Available and
// reserved items can be sold; sold is terminal.
func (l *Ledger) SellInventory(ctx context.Context, req SaleRequest) (*model.Sale, error) {
	if req.Price.IsNegative() {
		return nil, ErrInvalidAmount
	}
	date := l.Today()
	if !req.Date.IsZero() {
		date = dates.Day(req.Date)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := store.GetInventoryItem(ctx, tx, req.InventoryID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("inventory item %d: %w", req.InventoryID, ErrNotFound)
	}
	if item.Status == model.InventorySold {
		return nil, fmt.Errorf("%w: %s is already sold", ErrNotAvailable, item.Code)
	}
	if req.CustomerID != nil {
		customer, err := store.GetCustomer(ctx, tx, *req.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return nil, fmt.Errorf("%w: unknown customer %d", ErrValidation, *req.CustomerID)
		}
	}

	price := req.Price
	if price.IsZero() {
		price = item.SellingPrice
	}
	if !price.IsPositive() {
		return nil, ErrInvalidAmount
	}

	ok, err := store.UpdateInventoryStatus(ctx, tx, item.ID, item.Status, model.InventorySold)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("selling %s: %w", item.Code, ErrConflict)
	}

	sale := &model.Sale{
		InventoryID:   item.ID,
		CustomerID:    req.CustomerID,
		BranchID:      item.BranchID,
		StaffID:       req.StaffID,
		Price:         price,
		Date:          date,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
	sale.ID, err = store.WithUniqueCode(codeSale, date, func(code string) (int64, error) {
		sale.Code = code
		return store.InsertSale(ctx, tx, sale)
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing sale: %w", err)
	}

	slog.Info("inventory sold", "item", item.Code, "sale", sale.Code,
		"price", price.String(), "staff", req.StaffID)
	return sale, nil
}

// ReserveInventory holds an available item for a customer.
func (l *Ledger) ReserveInventory(ctx context.Context, id int64) (*model.InventoryItem, error) {
	return l.moveInventory(ctx, id, model.InventoryAvailable, model.InventoryReserved)
}

// ReleaseInventory returns a reserved item to sale.
func (l *Ledger) ReleaseInventory(ctx context.Context, id int64) (*model.InventoryItem, error) {
	return l.moveInventory(ctx, id, model.InventoryReserved, model.InventoryAvailable)
}

func (l *Ledger) moveInventory(ctx context.Context, id int64, from, to string) (*model.InventoryItem, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := store.GetInventoryItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("inventory item %d: %w", id, ErrNotFound)
	}
	if item.Status != from {
		return nil, fmt.Errorf("%w: %s is %s, not %s", ErrNotAvailable, item.Code, item.Status, from)
	}

	ok, err := store.UpdateInventoryStatus(ctx, tx, id, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("moving %s to %s: %w", item.Code, to, ErrConflict)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing inventory status: %w", err)
	}

	item.Status = to
	return item, nil
}
