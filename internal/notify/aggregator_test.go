package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zastavljalnica/internal/alerts"
	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/db"
	"github.com/erazemk/zastavljalnica/internal/ledger"
	"github.com/erazemk/zastavljalnica/internal/model"
	"github.com/erazemk/zastavljalnica/internal/store"
)

type testEnv struct {
	db     *sql.DB
	clock  *dates.FixedClock
	f      *store.Fixture
	ledger *ledger.Ledger
	agg    *Aggregator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	clock := &dates.FixedClock{T: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	return &testEnv{
		db:     database,
		clock:  clock,
		f:      store.NewFixture(t, database),
		ledger: ledger.New(database, clock),
		agg:    NewAggregator(database, clock),
	}
}

func (e *testEnv) pawn(t *testing.T, principal int64, term int) int64 {
	t.Helper()
	st, err := e.ledger.CreatePawn(context.Background(), ledger.PawnRequest{
		CustomerID: e.f.Customer.ID,
		BranchID:   e.f.Branch.ID,
		StaffID:    e.f.Clerk.ID,
		Principal:  decimal.NewFromInt(principal),
		Rate:       decimal.NewFromInt(3),
		TermMonths: term,
		Items: []ledger.ItemRequest{{
			CategoryID: e.f.Category.ID, Name: "Ring", AppraisedValue: decimal.NewFromInt(principal),
		}},
	})
	if err != nil {
		t.Fatalf("CreatePawn: %v", err)
	}
	return st.Transaction.ID
}

func (e *testEnv) advance(days int) {
	e.clock.T = e.clock.T.AddDate(0, 0, days)
}

func viewerOf(s *model.Staff) alerts.Viewer {
	return alerts.Viewer{StaffID: s.ID, Role: s.Role, BranchID: s.BranchID}
}

func TestGetAllOrderingAndStability(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	e.pawn(t, 150000, 1) // high value for managers, later overdue
	e.pawn(t, 5000, 3)
	e.advance(31 + 20) // first is 20 days overdue, both owe interest

	viewer := viewerOf(e.f.Manager)
	first, err := e.agg.GetAll(ctx, viewer)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("expected alerts")
	}
	for i := 1; i < len(first); i++ {
		if first[i].Priority.Before(first[i-1].Priority) {
			t.Fatalf("alert %d (%v) sorts after lower-priority %v", i, first[i].Priority, first[i-1].Priority)
		}
	}

	second, err := e.agg.GetAll(ctx, viewer)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if !reflect.DeepEqual(ids(first), ids(second)) {
		t.Errorf("ids changed between calls: %v vs %v", ids(first), ids(second))
	}
}

func TestSortIsStableOnEqualKeys(t *testing.T) {
	day := dates.Date(2025, 1, 1)
	in := []alerts.Alert{
		{ID: "a", Priority: alerts.PriorityLow, Date: day},
		{ID: "b", Priority: alerts.PriorityCritical, Date: day.AddDate(0, 0, 1)},
		{ID: "c", Priority: alerts.PriorityLow, Date: day},
		{ID: "d", Priority: alerts.PriorityCritical, Date: day},
	}
	Sort(in)
	want := []string{"d", "b", "a", "c"}
	if got := ids(in); !reflect.DeepEqual(got, want) {
		t.Errorf("Sort = %v, want %v", got, want)
	}
}

func TestUnreadDropsWhenConditionClears(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	txID := e.pawn(t, 10000, 1)
	e.advance(35) // overdue and owing interest

	s := NewSession(viewerOf(e.f.Clerk))
	before, err := e.agg.UnreadCount(ctx, s)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if before != 2 {
		t.Fatalf("expected interest + overdue alerts, got %d", before)
	}

	s.MarkRead(fmt.Sprintf("overdue_%d", txID))
	if n, _ := e.agg.UnreadCount(ctx, s); n != 1 {
		t.Errorf("after MarkRead: unread %d, want 1", n)
	}

	_, err = e.ledger.RecordPayment(ctx, ledger.PaymentRequest{
		TransactionID: txID, Type: model.PaymentRedemption,
		Amount: decimal.NewFromInt(10600), StaffID: e.f.Clerk.ID,
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if n, _ := e.agg.UnreadCount(ctx, s); n != 0 {
		t.Errorf("after redemption: unread %d, want 0", n)
	}
}

func TestMarkReadOnlyAcceptsVisibleAlerts(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	txID := e.pawn(t, 10000, 1)
	e.advance(35)

	s := NewSession(viewerOf(e.f.Clerk))
	id := fmt.Sprintf("overdue_%d", txID)
	if err := e.agg.MarkRead(ctx, s, id); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !s.IsRead(id) {
		t.Errorf("%s not marked read", id)
	}

	unknown := "overdue_99999"
	if err := e.agg.MarkRead(ctx, s, unknown); !errors.Is(err, ErrUnknownAlert) {
		t.Errorf("expected ErrUnknownAlert, got %v", err)
	}
	if s.IsRead(unknown) {
		t.Errorf("%s recorded despite being unknown", unknown)
	}

	// Another branch's alert is not visible to this viewer.
	other := NewSession(viewerOf(e.f.OtherClerk))
	if err := e.agg.MarkRead(ctx, other, id); !errors.Is(err, ErrUnknownAlert) {
		t.Errorf("other branch: expected ErrUnknownAlert, got %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	e.pawn(t, 10000, 1)
	e.advance(35)

	s := NewSession(viewerOf(e.f.Clerk))
	marked, err := e.agg.MarkAllRead(ctx, s)
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if marked != 2 {
		t.Errorf("marked %d, want 2", marked)
	}
	if n, _ := e.agg.UnreadCount(ctx, s); n != 0 {
		t.Errorf("unread %d after MarkAllRead", n)
	}

	// A new alert appearing later is unread again.
	e.pawn(t, 5000, 1)
	e.advance(31)
	if n, _ := e.agg.UnreadCount(ctx, s); n == 0 {
		t.Error("expected new alerts to be unread")
	}
}

func TestSummary(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		e.pawn(t, int64(1000*(i+1)), 1)
	}
	e.advance(35) // 4 overdue + 4 interest alerts

	s := NewSession(viewerOf(e.f.Clerk))
	all, _ := e.agg.GetAll(ctx, s.Viewer)
	s.MarkRead(all[0].ID)

	sum, err := e.agg.Summary(ctx, s, 3)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Total != 8 || sum.Unread != 7 {
		t.Errorf("total/unread = %d/%d, want 8/7", sum.Total, sum.Unread)
	}
	if sum.ByKind[alerts.KindOverdue] != 4 || sum.ByKind[alerts.KindInterestPayment] != 4 {
		t.Errorf("by kind = %v", sum.ByKind)
	}
	if sum.ByKind[alerts.KindInventory] != 0 {
		t.Errorf("expected zero inventory alerts to be reported, got %v", sum.ByKind)
	}
	if sum.ByPriority[alerts.PriorityHigh] != 4 || sum.ByPriority[alerts.PriorityMedium] != 4 {
		t.Errorf("by priority = %v", sum.ByPriority)
	}
	if len(sum.Alerts) != 3 {
		t.Fatalf("expected 3 alerts in slice, got %d", len(sum.Alerts))
	}
	if !sum.Alerts[0].Read || sum.Alerts[1].Read {
		t.Errorf("read flags = %v %v", sum.Alerts[0].Read, sum.Alerts[1].Read)
	}
	if sum.Alerts[0].ID != all[0].ID {
		t.Errorf("summary slice does not follow GetAll order")
	}

	def, _ := e.agg.Summary(ctx, s, 0)
	if len(def.Alerts) != 8 {
		t.Errorf("default limit should include all 8, got %d", len(def.Alerts))
	}
}

func ids(all []alerts.Alert) []string {
	out := make([]string, len(all))
	for i, a := range all {
		out[i] = a.ID
	}
	return out
}
