package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is a sellable object, entered by staff or produced by
// forfeiting a pawn transaction.
type InventoryItem struct {
	ID                  int64            `json:"id"`
	Code                string           `json:"code"`
	Name                string           `json:"name"`
	CategoryID          int64            `json:"category_id"`
	Description         string           `json:"description,omitempty"`
	Weight              *decimal.Decimal `json:"weight,omitempty"`
	CostPrice           decimal.Decimal  `json:"cost_price"`
	SellingPrice        decimal.Decimal  `json:"selling_price"`
	BranchID            int64            `json:"branch_id"`
	Status              string           `json:"status"`
	SourceTransactionID *int64           `json:"source_transaction_id,omitempty"`
	SourcePawnItemID    *int64           `json:"source_pawn_item_id,omitempty"`
	ImageMime           string           `json:"image_mime,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`

	// Joined fields (not always populated).
	CategoryName string `json:"category_name,omitempty"`
}

// Inventory statuses. Sold is terminal.
const (
	InventoryAvailable = "available"
	InventoryReserved  = "reserved"
	InventorySold      = "sold"
)

// Sale records an inventory item leaving the shop.
type Sale struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	InventoryID   int64           `json:"inventory_id"`
	CustomerID    *int64          `json:"customer_id,omitempty"`
	BranchID      int64           `json:"branch_id"`
	StaffID       int64           `json:"staff_id"`
	Price         decimal.Decimal `json:"price"`
	Date          time.Time       `json:"date"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// NotificationLog records one outbound notice attempt.
type NotificationLog struct {
	ID        int64     `json:"id"`
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"`
	Message   string    `json:"message"`
	Success   bool      `json:"success"`
	SentAt    time.Time `json:"sent_at"`
}

// Notification channels.
const (
	ChannelSMS  = "sms"
	ChannelLine = "line"
)
