package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zastavljalnica/internal/config"
	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/db"
	"github.com/erazemk/zastavljalnica/internal/model"
	"github.com/erazemk/zastavljalnica/internal/store"
)

type sentMessage struct {
	address string
	message string
}

type recordingChannel struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (c *recordingChannel) Send(_ context.Context, address, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMessage{address, message})
	return c.err
}

type jobEnv struct {
	job     *Job
	db      store.DBTX
	fixture *store.Fixture
	sms     *recordingChannel
	line    *recordingChannel
	seq     int
}

func newJobEnv(t *testing.T) *jobEnv {
	t.Helper()
	database := db.NewTestDB(t)
	clock := dates.FixedClock{T: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)}
	env := &jobEnv{
		db:      database,
		fixture: store.NewFixture(t, database),
		sms:     &recordingChannel{},
		line:    &recordingChannel{},
	}
	env.job = NewJob(database, clock, env.sms, env.line)
	if err := store.SetSetting(context.Background(), database, store.SettingCompanyPhone, "021234567"); err != nil {
		t.Fatal(err)
	}
	return env
}

func (e *jobEnv) insert(t *testing.T, customer *model.Customer, pawnDate time.Time, term int) int64 {
	t.Helper()
	e.seq++
	id, err := store.InsertTransaction(context.Background(), e.db, &model.PawnTransaction{
		Code:       fmt.Sprintf("P%010d", e.seq),
		CustomerID: customer.ID,
		BranchID:   customer.BranchID,
		StaffID:    e.fixture.Clerk.ID,
		Principal:  decimal.NewFromInt(10000),
		Rate:       decimal.NewFromInt(3),
		TermMonths: term,
		PawnDate:   pawnDate,
		DueDate:    dates.DueDate(pawnDate, term),
		CreatedAt:  pawnDate.Add(9 * time.Hour),
	})
	if err != nil {
		t.Fatalf("InsertTransaction: %v", err)
	}
	return id
}

func (e *jobEnv) pay(t *testing.T, txID int64, amount string, day time.Time) {
	t.Helper()
	_, err := store.InsertPayment(context.Background(), e.db, &model.Payment{
		TransactionID: txID,
		Type:          model.PaymentPartial,
		Amount:        decimal.RequireFromString(amount),
		Date:          day,
		StaffID:       e.fixture.Clerk.ID,
		CreatedAt:     day.Add(10 * time.Hour),
	})
	if err != nil {
		t.Fatalf("InsertPayment: %v", err)
	}
}

func TestSendExpiryReminders(t *testing.T) {
	e := newJobEnv(t)
	f := e.fixture

	e.insert(t, f.Customer, dates.Date(2025, 3, 16), 3)  // due tomorrow
	e.insert(t, f.Customer, dates.Date(2025, 3, 18), 3)  // due in 3 days
	e.insert(t, f.OtherCust, dates.Date(2025, 5, 15), 1) // due today, no phone
	e.insert(t, f.Customer, dates.Date(2025, 5, 19), 1)  // due in 4 days
	e.insert(t, f.Customer, dates.Date(2025, 5, 14), 1)  // overdue

	res, err := e.job.SendExpiryReminders(context.Background())
	if err != nil {
		t.Fatalf("SendExpiryReminders: %v", err)
	}
	if res.Sent != 3 || res.Failed != 0 {
		t.Errorf("result = %+v, want 3 sent", res)
	}

	if len(e.sms.sent) != 2 {
		t.Fatalf("expected 2 sms, got %d", len(e.sms.sent))
	}
	first := e.sms.sent[0]
	if first.address != "0812345678" {
		t.Errorf("sms address = %q", first.address)
	}
	for _, want := range []string{"Somchai Jaidee", "10000.00", "Due in 1 days", "Tel: 021234567"} {
		if !strings.Contains(first.message, want) {
			t.Errorf("sms %q missing %q", first.message, want)
		}
	}
	if !strings.Contains(e.sms.sent[1].message, "Due in 3 days") {
		t.Errorf("second sms = %q", e.sms.sent[1].message)
	}

	if len(e.line.sent) != 1 || !strings.Contains(e.line.sent[0].message, "Days left: 1") {
		t.Errorf("line notices = %+v", e.line.sent)
	}

	logs, err := store.ListNotificationLogs(context.Background(), e.db, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(logs))
	}
	channels := map[string]int{}
	for _, l := range logs {
		channels[l.Channel]++
		if !l.Success {
			t.Errorf("log %d not successful", l.ID)
		}
	}
	if channels[model.ChannelSMS] != 2 || channels[model.ChannelLine] != 1 {
		t.Errorf("log channels = %v", channels)
	}
}

func TestSendExpiryRemindersDueToday(t *testing.T) {
	e := newJobEnv(t)
	e.insert(t, e.fixture.Customer, dates.Date(2025, 5, 15), 1)

	if _, err := e.job.SendExpiryReminders(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(e.sms.sent) != 1 || !strings.Contains(e.sms.sent[0].message, "Due today") {
		t.Errorf("sms = %+v", e.sms.sent)
	}
	if len(e.line.sent) != 1 || !strings.Contains(e.line.sent[0].message, "Days left: 0") {
		t.Errorf("line = %+v", e.line.sent)
	}
}

func TestSendInterestReminders(t *testing.T) {
	e := newJobEnv(t)
	f := e.fixture

	e.insert(t, f.Customer, dates.Date(2025, 5, 1), 3) // 45 days, never paid
	paid := e.insert(t, f.Customer, dates.Date(2025, 5, 1), 3)
	e.pay(t, paid, "300", dates.Date(2025, 6, 1))        // 14 days since payment
	e.insert(t, f.OtherCust, dates.Date(2025, 1, 1), 12) // no phone
	e.insert(t, f.Customer, dates.Date(2025, 5, 20), 3)  // 26 days

	res, err := e.job.SendInterestReminders(context.Background())
	if err != nil {
		t.Fatalf("SendInterestReminders: %v", err)
	}
	if res.Sent != 1 {
		t.Fatalf("result = %+v, want 1 sent", res)
	}
	msg := e.sms.sent[0].message
	// 10000 * 3% * ceil(45/30)
	for _, want := range []string{"unpaid for 45 days", "Amount 600.00", "Tel: 021234567"} {
		if !strings.Contains(msg, want) {
			t.Errorf("sms %q missing %q", msg, want)
		}
	}
	if len(e.line.sent) != 0 {
		t.Errorf("interest reminders must not notify the owner, got %d", len(e.line.sent))
	}
}

func TestDeliveryFailureIsLogged(t *testing.T) {
	e := newJobEnv(t)
	e.sms.err = errors.New("gateway down")
	e.insert(t, e.fixture.Customer, dates.Date(2025, 3, 18), 3)

	res, err := e.job.SendExpiryReminders(context.Background())
	if err != nil {
		t.Fatalf("delivery failures must not fail the run: %v", err)
	}
	if res.Sent != 0 || res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}

	logs, err := store.ListNotificationLogs(context.Background(), e.db, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].Success {
		t.Errorf("expected one failed log entry, got %+v", logs)
	}
}

func TestDailyReport(t *testing.T) {
	e := newJobEnv(t)
	f := e.fixture
	ctx := context.Background()
	today := dates.Date(2025, 6, 15)

	e.insert(t, f.Customer, today, 1)
	dueToday := e.insert(t, f.Customer, dates.Date(2025, 5, 15), 1)
	closed := e.insert(t, f.OtherCust, dates.Date(2025, 5, 15), 1)
	if ok, err := store.UpdateTransactionStatus(ctx, e.db, closed, 0, model.TxStatusPaid); err != nil || !ok {
		t.Fatalf("closing transaction: %v %v", ok, err)
	}
	e.pay(t, dueToday, "100", today)
	e.pay(t, closed, "250.50", today)
	e.pay(t, closed, "999", dates.Date(2025, 6, 14))

	report, err := e.job.BuildDailyReport(ctx)
	if err != nil {
		t.Fatalf("BuildDailyReport: %v", err)
	}
	if report.NewPawns != 1 || report.PaymentsToday != 2 || report.ExpiringToday != 1 {
		t.Errorf("report = %+v", report)
	}
	if !report.RevenueToday.Equal(decimal.RequireFromString("350.50")) {
		t.Errorf("revenue = %s", report.RevenueToday)
	}

	res, err := e.job.SendDailyReport(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Sent != 1 || len(e.line.sent) != 1 {
		t.Fatalf("expected one line report, got %+v", res)
	}
	if !strings.Contains(e.line.sent[0].message, "Revenue today: 350.50") {
		t.Errorf("report message = %q", e.line.sent[0].message)
	}
}

func TestUnconfiguredLineIsSkipped(t *testing.T) {
	e := newJobEnv(t)
	var line Channel
	if ch, ok := NewLineChannel(config.LineConfig{URL: "http://unused"}); ok {
		line = ch
	}
	e.job = NewJob(e.job.db, e.job.clock, e.sms, line)

	res, err := e.job.SendDailyReport(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Sent != 0 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	logs, err := store.ListNotificationLogs(context.Background(), e.db, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 0 {
		t.Errorf("nothing should be logged, got %d", len(logs))
	}
}

func TestRunAll(t *testing.T) {
	e := newJobEnv(t)
	e.insert(t, e.fixture.Customer, dates.Date(2025, 3, 16), 3)

	res, err := e.job.RunAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// Expiry sms + owner notice, interest sms (91 days), daily report.
	if res.Sent != 4 {
		t.Errorf("sent = %d, want 4", res.Sent)
	}
}
