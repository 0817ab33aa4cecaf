package reminder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/ledger"
	"github.com/erazemk/zastavljalnica/internal/model"
	"github.com/erazemk/zastavljalnica/internal/store"
)

// ExpiryWindowDays is how far ahead expiry reminders look.
const ExpiryWindowDays = 3

// InterestReminderDays is the number of days without any payment after which
// a customer is reminded to pay interest.
const InterestReminderDays = 30

// lineRecipient is the recipient recorded for LINE notices, which always go
// to the shop owner's token.
const lineRecipient = "owner"

// Result counts delivery outcomes of one run.
type Result struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

func (r *Result) add(other Result) {
	r.Sent += other.Sent
	r.Failed += other.Failed
}

// Job composes reminder messages from the ledger and delivers them.
type Job struct {
	db    *sql.DB
	clock dates.Clock
	sms   Channel
	line  Channel
}

// NewJob creates a reminder job. line may be nil, in which case staff notices
// are skipped.
func NewJob(db *sql.DB, clock dates.Clock, sms, line Channel) *Job {
	return &Job{db: db, clock: clock, sms: sms, line: line}
}

// RunAll runs every reminder kind once. It stops at the first error reading
// the ledger; delivery failures only count as failed.
func (j *Job) RunAll(ctx context.Context) (Result, error) {
	var total Result
	steps := []func(context.Context) (Result, error){
		j.SendExpiryReminders,
		j.SendInterestReminders,
		j.SendDailyReport,
	}
	for _, step := range steps {
		r, err := step(ctx)
		total.add(r)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// SendExpiryReminders texts every customer whose active contract falls due in
// the next few days, and warns the owner about contracts due within a day.
func (j *Job) SendExpiryReminders(ctx context.Context) (Result, error) {
	today := dates.Today(j.clock)
	txs, err := store.ListActiveDueBetween(ctx, j.db, 0, today, today.AddDate(0, 0, ExpiryWindowDays))
	if err != nil {
		return Result{}, err
	}
	shopPhone, err := store.GetSetting(ctx, j.db, store.SettingCompanyPhone)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, tx := range txs {
		if tx.CustomerPhone == "" {
			continue
		}
		daysLeft := dates.DaysBetween(today, tx.DueDate)
		amount := formatMoney(tx.Principal)

		var b strings.Builder
		fmt.Fprintf(&b, "Dear %s\n", tx.CustomerName)
		fmt.Fprintf(&b, "Pawn contract %s\n", tx.Code)
		fmt.Fprintf(&b, "Amount %s\n", amount)
		if daysLeft == 0 {
			b.WriteString("Due today\n")
		} else {
			fmt.Fprintf(&b, "Due in %d days\n", daysLeft)
		}
		b.WriteString("Please contact the shop to redeem or renew\n")
		fmt.Fprintf(&b, "Tel: %s", shopPhone)

		res.add(j.deliver(ctx, model.ChannelSMS, j.sms, tx.CustomerPhone, b.String()))

		if daysLeft <= 1 {
			notice := fmt.Sprintf("Contract due soon\nContract: %s\nCustomer: %s\nAmount: %s\nDays left: %d",
				tx.Code, tx.CustomerName, amount, daysLeft)
			res.add(j.deliver(ctx, model.ChannelLine, j.line, lineRecipient, notice))
		}
	}

	slog.Info("expiry reminders sent", "sent", res.Sent, "failed", res.Failed)
	return res, nil
}

// SendInterestReminders texts every customer who has made no payment of any
// kind for at least InterestReminderDays days.
func (j *Job) SendInterestReminders(ctx context.Context) (Result, error) {
	today := dates.Today(j.clock)
	txs, err := store.ListActiveWithLastPayment(ctx, j.db, 0)
	if err != nil {
		return Result{}, err
	}
	shopPhone, err := store.GetSetting(ctx, j.db, store.SettingCompanyPhone)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, tx := range txs {
		if tx.CustomerPhone == "" {
			continue
		}
		since := tx.PawnDate
		if tx.LastPayment != nil {
			since = *tx.LastPayment
		}
		days := dates.DaysBetween(since, today)
		if days < InterestReminderDays {
			continue
		}
		owed := ledger.MonthlyInterest(tx.PawnTransaction).Mul(decimal.NewFromInt(int64(dates.MonthsElapsed(days))))

		var b strings.Builder
		fmt.Fprintf(&b, "Dear %s\n", tx.CustomerName)
		fmt.Fprintf(&b, "Pawn contract %s\n", tx.Code)
		fmt.Fprintf(&b, "Interest unpaid for %d days\n", days)
		fmt.Fprintf(&b, "Amount %s\n", formatMoney(owed))
		b.WriteString("Please contact the shop to pay the interest\n")
		fmt.Fprintf(&b, "Tel: %s", shopPhone)

		res.add(j.deliver(ctx, model.ChannelSMS, j.sms, tx.CustomerPhone, b.String()))
	}

	slog.Info("interest reminders sent", "sent", res.Sent, "failed", res.Failed)
	return res, nil
}

// DailyReport is the day's activity summary sent to the owner.
type DailyReport struct {
	Day           string          `json:"day"`
	NewPawns      int             `json:"new_pawns"`
	PaymentsToday int             `json:"payments_today"`
	RevenueToday  decimal.Decimal `json:"revenue_today"`
	ExpiringToday int             `json:"expiring_today"`
}

// Message renders the report as LINE text.
func (r DailyReport) Message() string {
	return fmt.Sprintf("Daily report %s\n\nNew pawns: %d\nPayments: %d\nRevenue today: %s\nDue today: %d",
		r.Day, r.NewPawns, r.PaymentsToday, formatMoney(r.RevenueToday), r.ExpiringToday)
}

// BuildDailyReport gathers today's figures across all branches.
func (j *Job) BuildDailyReport(ctx context.Context) (DailyReport, error) {
	today := dates.Today(j.clock)

	newPawns, err := store.CountTransactionsOn(ctx, j.db, today)
	if err != nil {
		return DailyReport{}, err
	}
	payments, err := store.PaymentsOn(ctx, j.db, today)
	if err != nil {
		return DailyReport{}, err
	}
	expiring, err := store.ListActiveDueBetween(ctx, j.db, 0, today, today)
	if err != nil {
		return DailyReport{}, err
	}

	return DailyReport{
		Day:           dates.FormatDate(today),
		NewPawns:      newPawns,
		PaymentsToday: payments.Count,
		RevenueToday:  payments.Total,
		ExpiringToday: len(expiring),
	}, nil
}

// SendDailyReport sends today's summary to the owner over LINE.
func (j *Job) SendDailyReport(ctx context.Context) (Result, error) {
	report, err := j.BuildDailyReport(ctx)
	if err != nil {
		return Result{}, err
	}
	res := j.deliver(ctx, model.ChannelLine, j.line, lineRecipient, report.Message())
	slog.Info("daily report sent", "day", report.Day, "sent", res.Sent, "failed", res.Failed)
	return res, nil
}

// deliver sends one message and records the attempt. A nil channel means the
// channel is not configured and nothing is attempted.
func (j *Job) deliver(ctx context.Context, channel string, ch Channel, address, message string) Result {
	if ch == nil {
		return Result{}
	}

	sendErr := ch.Send(ctx, address, message)
	if sendErr != nil {
		slog.Warn("notice delivery failed", "channel", channel, "recipient", address, "error", sendErr)
	}

	entry := &model.NotificationLog{
		Channel:   channel,
		Recipient: address,
		Message:   message,
		Success:   sendErr == nil,
		SentAt:    j.clock.Now(),
	}
	if err := store.InsertNotificationLog(ctx, j.db, entry); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("recording notice failed", "channel", channel, "error", err)
	}

	if sendErr != nil {
		return Result{Failed: 1}
	}
	return Result{Sent: 1}
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
