// Package notify merges alert rule output into one ordered feed and tracks
// which alerts each viewer has read.
package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/erazemk/zastavljalnica/internal/alerts"
	"github.com/erazemk/zastavljalnica/internal/dates"
)

// ErrUnknownAlert is returned when an alert id is not among the viewer's
// current alerts.
var ErrUnknownAlert = errors.New("alert not found")

// DefaultSummaryLimit caps the alert slice of a summary when no limit is given.
const DefaultSummaryLimit = 15

// Aggregator runs every alert rule for a viewer over one consistent snapshot.
type Aggregator struct {
	db    *sql.DB
	clock dates.Clock
	rules []alerts.Rule
}

// NewAggregator returns an aggregator running all alert rules.
func NewAggregator(db *sql.DB, clock dates.Clock) *Aggregator {
	return &Aggregator{db: db, clock: clock, rules: alerts.Rules()}
}

// GetAll evaluates every rule for viewer with a single "now", concatenates
// the results and orders them by priority rank, then date. Any failing rule
// fails the whole call.
func (a *Aggregator) GetAll(ctx context.Context, viewer alerts.Viewer) ([]alerts.Alert, error) {
	return a.getAll(ctx, viewer, a.clock.Now())
}

func (a *Aggregator) getAll(ctx context.Context, viewer alerts.Viewer, now time.Time) ([]alerts.Alert, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	all := []alerts.Alert{}
	for _, rule := range a.rules {
		out, err := rule(ctx, tx, viewer, now)
		if err != nil {
			return nil, fmt.Errorf("evaluating alerts: %w", err)
		}
		all = append(all, out...)
	}

	Sort(all)
	return all, nil
}

// Sort orders alerts by priority rank, then date, keeping the rule order for
// equal keys.
func Sort(all []alerts.Alert) {
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Priority != all[j].Priority {
			return all[i].Priority.Before(all[j].Priority)
		}
		return all[i].Date.Before(all[j].Date)
	})
}

// UnreadCount returns how many currently visible alerts the session has not
// read. Alerts whose condition no longer holds drop out on their own.
func (a *Aggregator) UnreadCount(ctx context.Context, s *Session) (int, error) {
	all, err := a.GetAll(ctx, s.Viewer)
	if err != nil {
		return 0, err
	}
	unread := 0
	for _, al := range all {
		if !s.IsRead(al.ID) {
			unread++
		}
	}
	return unread, nil
}

// MarkRead marks one of the viewer's current alerts as read. Ids that are
// not currently visible, including alerts whose condition has cleared, are
// rejected with ErrUnknownAlert.
func (a *Aggregator) MarkRead(ctx context.Context, s *Session, id string) error {
	all, err := a.GetAll(ctx, s.Viewer)
	if err != nil {
		return err
	}
	for _, al := range all {
		if al.ID == id {
			s.MarkRead(id)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownAlert, id)
}

// MarkAllRead marks every currently visible alert as read and returns how
// many there were.
func (a *Aggregator) MarkAllRead(ctx context.Context, s *Session) (int, error) {
	all, err := a.GetAll(ctx, s.Viewer)
	if err != nil {
		return 0, err
	}
	for _, al := range all {
		s.MarkRead(al.ID)
	}
	return len(all), nil
}

// Item is an alert flagged with the viewer's read state.
type Item struct {
	alerts.Alert
	Read bool `json:"read"`
}

// Summary is the dashboard view of a viewer's alerts.
type Summary struct {
	Total      int                     `json:"total"`
	Unread     int                     `json:"unread"`
	ByPriority map[alerts.Priority]int `json:"by_priority"`
	ByKind     map[alerts.Kind]int     `json:"by_kind"`
	Alerts     []Item                  `json:"alerts"`
}

// Summary derives counts and the first limit alerts from one GetAll.
func (a *Aggregator) Summary(ctx context.Context, s *Session, limit int) (*Summary, error) {
	if limit <= 0 {
		limit = DefaultSummaryLimit
	}

	all, err := a.GetAll(ctx, s.Viewer)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		Total:      len(all),
		ByPriority: make(map[alerts.Priority]int, len(alerts.Priorities)),
		ByKind:     make(map[alerts.Kind]int, len(alerts.Kinds)),
		Alerts:     []Item{},
	}
	for _, p := range alerts.Priorities {
		sum.ByPriority[p] = 0
	}
	for _, k := range alerts.Kinds {
		sum.ByKind[k] = 0
	}

	for i, al := range all {
		read := s.IsRead(al.ID)
		if !read {
			sum.Unread++
		}
		sum.ByPriority[al.Priority]++
		sum.ByKind[al.Kind]++
		if i < limit {
			sum.Alerts = append(sum.Alerts, Item{Alert: al, Read: read})
		}
	}
	return sum, nil
}
