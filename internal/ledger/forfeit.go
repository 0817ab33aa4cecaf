package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/model"
	"github.com/erazemk/zastavljalnica/internal/store"
)

// Markup is the selling price multiplier applied to forfeited items.
var Markup = decimal.RequireFromString("1.3")

// ForfeitPrices splits principal evenly over itemCount items and applies the
// markup, both rounded to two decimals.
func ForfeitPrices(principal decimal.Decimal, itemCount int) (cost, selling decimal.Decimal, err error) {
	if itemCount <= 0 {
		return decimal.Zero, decimal.Zero, ErrNoItems
	}
	cost = principal.Div(decimal.NewFromInt(int64(itemCount))).Round(2)
	selling = cost.Mul(Markup).Round(2)
	return cost, selling, nil
}

// ForfeitResult is the forfeited transaction and the inventory it produced.
type ForfeitResult struct {
	Transaction model.PawnTransaction `json:"transaction"`
	Inventory   []model.InventoryItem `json:"inventory"`
}

// Forfeit converts every item of an active transaction into an available
// inventory item and marks the transaction forfeited. Either all of it
// commits or nothing does.
func (l *Ledger) Forfeit(ctx context.Context, transactionID, staffID int64) (*ForfeitResult, error) {
	now := l.clock.Now()
	today := dates.Day(now)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	pawn, err := store.GetTransaction(ctx, tx, transactionID)
	if err != nil {
		return nil, err
	}
	if pawn == nil {
		return nil, fmt.Errorf("transaction %d: %w", transactionID, ErrNotFound)
	}
	if pawn.Status != model.TxStatusActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotActive, pawn.Code, pawn.Status)
	}

	items, err := store.ListPawnItems(ctx, tx, pawn.ID)
	if err != nil {
		return nil, err
	}
	cost, selling, err := ForfeitPrices(pawn.Principal, len(items))
	if err != nil {
		return nil, fmt.Errorf("forfeiting %s: %w", pawn.Code, err)
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		inv := &model.InventoryItem{
			Name:                item.Name,
			CategoryID:          item.CategoryID,
			Description:         item.Description,
			Weight:              item.Weight,
			CostPrice:           cost,
			SellingPrice:        selling,
			BranchID:            pawn.BranchID,
			SourceTransactionID: &pawn.ID,
			SourcePawnItemID:    &item.ID,
			CreatedAt:           now,
		}
		id, err := store.WithUniqueCode(codeInventory, today, func(code string) (int64, error) {
			inv.Code = code
			return store.InsertInventoryItem(ctx, tx, inv)
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	converted, err := store.CountInventoryFromTransaction(ctx, tx, pawn.ID)
	if err != nil {
		return nil, err
	}
	if converted != len(items) {
		return nil, fmt.Errorf("forfeiting %s: %d items produced %d inventory rows: %w",
			pawn.Code, len(items), converted, ErrConsistency)
	}

	ok, err := store.UpdateTransactionStatus(ctx, tx, pawn.ID, pawn.Version, model.TxStatusForfeited)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("forfeiting %s: %w", pawn.Code, ErrConflict)
	}

	result := &ForfeitResult{}
	for _, id := range ids {
		inv, err := store.GetInventoryItem(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		result.Inventory = append(result.Inventory, *inv)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing forfeiture: %w", err)
	}

	slog.Info("transaction forfeited", "transaction", pawn.Code, "items", len(items),
		"cost_each", cost.String(), "staff", staffID)

	pawn.Status = model.TxStatusForfeited
	pawn.Version++
	result.Transaction = *pawn
	return result, nil
}
