package model

import "time"

// Branch is a shop location. Transactions, inventory and staff belong to one.
type Branch struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Customer is a person pledging items.
type Customer struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone,omitempty"`
	IDCardNo  string    `json:"id_card_no,omitempty"`
	BranchID  int64     `json:"branch_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName joins first and last name.
func (c Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Category groups pledged and inventory items (gold, electronics, ...).
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
