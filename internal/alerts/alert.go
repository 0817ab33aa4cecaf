// Package alerts evaluates the rules that turn ledger and inventory state
// into time-sensitive warnings for branch staff.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zastavljalnica/internal/model"
	"github.com/erazemk/zastavljalnica/internal/store"
)

// Priority is the urgency of an alert. Lower rank sorts first.
type Priority int

// Priorities, most urgent first.
const (
	PriorityCritical Priority = iota + 1
	PriorityHigh
	PriorityMedium
	PriorityLow
	PriorityInfo
)

// Priorities lists every priority in rank order.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow, PriorityInfo}

var priorityNames = map[Priority]string{
	PriorityCritical: "critical",
	PriorityHigh:     "high",
	PriorityMedium:   "medium",
	PriorityLow:      "low",
	PriorityInfo:     "info",
}

// Rank returns the sort rank: critical=1 through info=5.
func (p Priority) Rank() int { return int(p) }

// Before reports whether p sorts ahead of q.
func (p Priority) Before(q Priority) bool { return p.Rank() < q.Rank() }

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// MarshalText encodes the priority by name.
func (p Priority) MarshalText() ([]byte, error) {
	if _, ok := priorityNames[p]; !ok {
		return nil, fmt.Errorf("unknown priority %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a priority name.
func (p *Priority) UnmarshalText(b []byte) error {
	for q, name := range priorityNames {
		if name == string(b) {
			*p = q
			return nil
		}
	}
	return fmt.Errorf("unknown priority %q", b)
}

// Kind is the category of an alert.
type Kind string

// Alert kinds.
const (
	KindContractExpiry  Kind = "contract_expiry"
	KindInterestPayment Kind = "interest_payment"
	KindOverdue         Kind = "overdue"
	KindHighValue       Kind = "high_value"
	KindInventory       Kind = "inventory"
)

// Kinds lists every alert kind.
var Kinds = []Kind{KindContractExpiry, KindInterestPayment, KindOverdue, KindHighValue, KindInventory}

// Color hints.
const (
	ColorRed    = "red"
	ColorOrange = "orange"
	ColorYellow = "yellow"
	ColorBlue   = "blue"
	ColorPurple = "purple"
	ColorGray   = "gray"
)

// Alert is one surfaced warning. Alerts are recomputed on every request and
// never stored; ID stays the same for as long as the source record keeps
// matching the same rule.
type Alert struct {
	ID        string           `json:"id"`
	Kind      Kind             `json:"kind"`
	Priority  Priority         `json:"priority"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Customer  string           `json:"customer,omitempty"`
	Phone     string           `json:"phone,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Principal *decimal.Decimal `json:"principal,omitempty"`
	Days      int              `json:"days"`
	Date      time.Time        `json:"date"`
	Link      string           `json:"link"`
	Icon      string           `json:"icon"`
	Color     string           `json:"color"`
}

// Viewer is the staff member alerts are computed for.
type Viewer struct {
	StaffID  int64  `json:"staff_id"`
	Role     string `json:"role"`
	BranchID int64  `json:"branch_id"`
}

// branchScope returns the branch filter for store queries: 0 (all branches)
// for admins, the viewer's own branch otherwise.
func (v Viewer) branchScope() int64 {
	if v.Role == model.RoleAdmin {
		return 0
	}
	return v.BranchID
}

// Rule evaluates one alert rule for viewer at now. Rules only read.
type Rule func(ctx context.Context, db store.DBTX, viewer Viewer, now time.Time) ([]Alert, error)

// Rules returns every rule in evaluation order.
func Rules() []Rule {
	return []Rule{ExpiringSoon, InterestOverdue, LoanOverdue, HighValueRecent, StaleInventory}
}

func alertID(tag string, id int64) string {
	return fmt.Sprintf("%s_%d", tag, id)
}

func transactionLink(id int64) string {
	return fmt.Sprintf("/transactions/%d", id)
}

func inventoryLink(id int64) string {
	return fmt.Sprintf("/inventory/%d", id)
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

// limit truncates alerts to at most n entries.
func limit(alerts []Alert, n int) []Alert {
	if len(alerts) > n {
		return alerts[:n]
	}
	return alerts
}
