package alerts

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/ledger"
	"github.com/erazemk/zastavljalnica/internal/model"
	"github.com/erazemk/zastavljalnica/internal/store"
)

// Rule thresholds and caps.
const (
	weekLookahead    = 7
	weekLimit        = 10
	interestDueDays  = 30
	interestWarnDays = 45
	interestHighDays = 60
	interestLimit    = 15
	overdueWeeksDays = 14
	overdueMonthDays = 30
	overdueLimit     = 15
	highValueDays    = 3
	highValueLimit   = 5
	staleDays        = 90
	staleOldDays     = 180
	staleLimit       = 10
)

// HighValueThreshold is the principal from which a new pawn is flagged.
var HighValueThreshold = decimal.NewFromInt(100000)

// ExpiringSoon flags active transactions due today (critical), tomorrow
// (high) and within the rest of the week (medium, the ten soonest).
func ExpiringSoon(ctx context.Context, db store.DBTX, viewer Viewer, now time.Time) ([]Alert, error) {
	today := dates.Day(now)
	txs, err := store.ListActiveDueBetween(ctx, db, viewer.branchScope(), today, today.AddDate(0, 0, weekLookahead))
	if err != nil {
		return nil, fmt.Errorf("expiring soon: %w", err)
	}

	var dueToday, dueTomorrow, dueWeek []model.PawnTransaction
	for _, tx := range txs {
		switch dates.DaysBetween(today, tx.DueDate) {
		case 0:
			dueToday = append(dueToday, tx)
		case 1:
			dueTomorrow = append(dueTomorrow, tx)
		default:
			dueWeek = append(dueWeek, tx)
		}
	}

	byPrincipal := func(txs []model.PawnTransaction) {
		sort.SliceStable(txs, func(i, j int) bool {
			return txs[i].Principal.GreaterThan(txs[j].Principal)
		})
	}
	byPrincipal(dueToday)
	byPrincipal(dueTomorrow)
	sort.SliceStable(dueWeek, func(i, j int) bool {
		if !dueWeek[i].DueDate.Equal(dueWeek[j].DueDate) {
			return dueWeek[i].DueDate.Before(dueWeek[j].DueDate)
		}
		return dueWeek[i].Principal.GreaterThan(dueWeek[j].Principal)
	})
	if len(dueWeek) > weekLimit {
		dueWeek = dueWeek[:weekLimit]
	}

	var alerts []Alert
	for _, tx := range dueToday {
		a := expiryAlert(tx, "expiry_today", 0)
		a.Priority, a.Color = PriorityCritical, ColorRed
		a.Title = "Contract expires today"
		a.Message = fmt.Sprintf("%s (%s) expires today", tx.Code, tx.CustomerName)
		alerts = append(alerts, a)
	}
	for _, tx := range dueTomorrow {
		a := expiryAlert(tx, "expiry_tomorrow", 1)
		a.Priority, a.Color = PriorityHigh, ColorOrange
		a.Title = "Contract expires tomorrow"
		a.Message = fmt.Sprintf("%s (%s) expires tomorrow", tx.Code, tx.CustomerName)
		alerts = append(alerts, a)
	}
	for _, tx := range dueWeek {
		days := dates.DaysBetween(today, tx.DueDate)
		a := expiryAlert(tx, "expiry_week", days)
		a.Priority, a.Color = PriorityMedium, ColorYellow
		a.Title = "Contract expires this week"
		a.Message = fmt.Sprintf("%s (%s) expires in %d days", tx.Code, tx.CustomerName, days)
		alerts = append(alerts, a)
	}
	return alerts, nil
}

func expiryAlert(tx model.PawnTransaction, tag string, days int) Alert {
	return Alert{
		ID:        alertID(tag, tx.ID),
		Kind:      KindContractExpiry,
		Customer:  tx.CustomerName,
		Phone:     tx.CustomerPhone,
		Principal: ptr(tx.Principal),
		Days:      days,
		Date:      tx.DueDate,
		Link:      transactionLink(tx.ID),
		Icon:      "clock",
	}
}

// InterestOverdue flags active transactions with no interest or partial
// payment (or, lacking one, no pawn) in the last 30 days. Amount is the
// interest accrued since that date.
func InterestOverdue(ctx context.Context, db store.DBTX, viewer Viewer, now time.Time) ([]Alert, error) {
	today := dates.Day(now)
	txs, err := store.ListActiveWithLastPayment(ctx, db, viewer.branchScope(),
		model.PaymentInterest, model.PaymentPartial)
	if err != nil {
		return nil, fmt.Errorf("interest overdue: %w", err)
	}

	var alerts []Alert
	for _, tx := range txs {
		since := tx.PawnDate
		if tx.LastPayment != nil {
			since = *tx.LastPayment
		}
		days := dates.DaysBetween(since, today)
		if days < interestDueDays {
			continue
		}

		amount := ledger.MonthlyInterest(tx.PawnTransaction).
			Mul(decimal.NewFromInt(int64(dates.MonthsElapsed(days))))
		a := Alert{
			ID:        alertID("interest_due", tx.ID),
			Kind:      KindInterestPayment,
			Priority:  PriorityMedium,
			Color:     ColorBlue,
			Title:     "Interest payment due",
			Message:   fmt.Sprintf("%s (%s) has not paid interest for %d days", tx.Code, tx.CustomerName, days),
			Customer:  tx.CustomerName,
			Phone:     tx.CustomerPhone,
			Amount:    ptr(amount),
			Principal: ptr(tx.Principal),
			Days:      days,
			Date:      since,
			Link:      transactionLink(tx.ID),
			Icon:      "coins",
		}
		switch {
		case days >= interestHighDays:
			a.Priority, a.Color = PriorityHigh, ColorRed
		case days >= interestWarnDays:
			a.Color = ColorOrange
		}
		alerts = append(alerts, a)
	}

	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Days > alerts[j].Days })
	return limit(alerts, interestLimit), nil
}

// LoanOverdue flags active transactions past their due date. Amount is the
// remaining balance as of today.
func LoanOverdue(ctx context.Context, db store.DBTX, viewer Viewer, now time.Time) ([]Alert, error) {
	today := dates.Day(now)
	txs, err := store.ListActiveDueBefore(ctx, db, viewer.branchScope(), today)
	if err != nil {
		return nil, fmt.Errorf("loan overdue: %w", err)
	}

	sort.SliceStable(txs, func(i, j int) bool { return txs[i].DueDate.Before(txs[j].DueDate) })
	if len(txs) > overdueLimit {
		txs = txs[:overdueLimit]
	}

	alerts := make([]Alert, 0, len(txs))
	for _, tx := range txs {
		paid, err := store.SumPayments(ctx, db, tx.ID)
		if err != nil {
			return nil, fmt.Errorf("loan overdue: %w", err)
		}
		days := dates.DaysBetween(tx.DueDate, today)
		a := Alert{
			ID:        alertID("overdue", tx.ID),
			Kind:      KindOverdue,
			Priority:  PriorityHigh,
			Color:     ColorRed,
			Title:     "Loan overdue",
			Message:   fmt.Sprintf("%s (%s) is %d days overdue", tx.Code, tx.CustomerName, days),
			Customer:  tx.CustomerName,
			Phone:     tx.CustomerPhone,
			Amount:    ptr(ledger.ComputeInterest(tx, paid, today).DisplayRemaining()),
			Principal: ptr(tx.Principal),
			Days:      days,
			Date:      tx.DueDate,
			Link:      transactionLink(tx.ID),
			Icon:      "alert-triangle",
		}
		switch {
		case days >= overdueMonthDays:
			a.Priority = PriorityCritical
			a.Title = "Loan overdue over 30 days"
		case days >= overdueWeeksDays:
			a.Title = "Loan overdue over 2 weeks"
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// HighValueRecent shows managers and admins the five newest pawns of at
// least HighValueThreshold created in the last three days.
func HighValueRecent(ctx context.Context, db store.DBTX, viewer Viewer, now time.Time) ([]Alert, error) {
	if !model.RoleAtLeast(viewer.Role, model.RoleManager) {
		return nil, nil
	}

	txs, err := store.ListCreatedSince(ctx, db, viewer.branchScope(), dates.StartOfDay(now, highValueDays))
	if err != nil {
		return nil, fmt.Errorf("high value: %w", err)
	}

	var alerts []Alert
	for _, tx := range txs {
		if tx.Principal.LessThan(HighValueThreshold) {
			continue
		}
		alerts = append(alerts, Alert{
			ID:        alertID("high_value", tx.ID),
			Kind:      KindHighValue,
			Priority:  PriorityInfo,
			Color:     ColorPurple,
			Title:     "High-value pawn",
			Message:   fmt.Sprintf("%s (%s) pawned for %s", tx.Code, tx.CustomerName, tx.Principal.StringFixed(2)),
			Customer:  tx.CustomerName,
			Phone:     tx.CustomerPhone,
			Amount:    ptr(tx.Principal),
			Principal: ptr(tx.Principal),
			Days:      dates.DaysBetween(tx.CreatedAt.In(now.Location()), now),
			Date:      tx.CreatedAt,
			Link:      transactionLink(tx.ID),
			Icon:      "star",
		})
		if len(alerts) == highValueLimit {
			break
		}
	}
	return alerts, nil
}

// StaleInventory flags items available for 90 days or more (low), 180 or
// more (medium), the ten oldest.
func StaleInventory(ctx context.Context, db store.DBTX, viewer Viewer, now time.Time) ([]Alert, error) {
	items, err := store.ListAvailableCreatedBefore(ctx, db, viewer.branchScope(), dates.StartOfDay(now, staleDays-1))
	if err != nil {
		return nil, fmt.Errorf("stale inventory: %w", err)
	}

	var alerts []Alert
	for _, item := range items {
		days := dates.DaysBetween(item.CreatedAt.In(now.Location()), now)
		if days < staleDays {
			continue
		}
		a := Alert{
			ID:       alertID("old_inventory", item.ID),
			Kind:     KindInventory,
			Priority: PriorityLow,
			Color:    ColorGray,
			Title:    "Slow-moving stock",
			Message:  fmt.Sprintf("%s (%s) has been in stock for %d days", item.Name, item.Code, days),
			Amount:   ptr(item.SellingPrice),
			Days:     days,
			Date:     item.CreatedAt,
			Link:     inventoryLink(item.ID),
			Icon:     "box",
		}
		if days >= staleOldDays {
			a.Priority = PriorityMedium
		}
		alerts = append(alerts, a)
	}

	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Days > alerts[j].Days })
	return limit(alerts, staleLimit), nil
}
