package core

import (
	"math"
	"sort"
	"time"
)

// Period keywords accepted by the dashboard. Anything else silently behaves
// like PeriodToday, matching what the mobile client has always relied on.
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

type (
	// CategoryStat is one row of the ranked spending breakdown.
	CategoryStat struct {
		ID         string
		Name       string
		Amount     Money
		Percentage int
		Color      string
		Icon       string
	}

	// SpendingTrend compares spending in the current window against the
	// immediately preceding one. Percentage is positive for an increase and
	// zero whenever the previous window had no spending.
	SpendingTrend struct {
		Current    Money
		Previous   Money
		Percentage int
	}

	// Dashboard is the full aggregation snapshot for one user and period.
	// Weekly and Monthly are computed regardless of the requested period;
	// the client renders both trend cards on every screen.
	Dashboard struct {
		TotalBalance Money
		Income       Money
		Spending     Money
		Categories   []CategoryStat
		Weekly       SpendingTrend
		Monthly      SpendingTrend
	}
)

// ResolvePeriod maps a period keyword to the date range [start, now].
// Weeks start on the most recent Sunday at midnight.
func ResolvePeriod(period string, now time.Time) (start, end time.Time) {
	switch period {
	case PeriodWeek:
		start = startOfWeek(now)
	case PeriodMonth:
		start = startOfMonth(now)
	case PeriodYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default: // PeriodToday and anything unrecognized
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	return start, now
}

// WeekWindows returns the this-week and last-week comparison ranges.
// lastEnd sits 1ms before this week's start so the windows never overlap.
func WeekWindows(now time.Time) (thisStart, thisEnd, lastStart, lastEnd time.Time) {
	thisStart = startOfWeek(now)
	thisEnd = now
	lastStart = thisStart.AddDate(0, 0, -7)
	lastEnd = thisStart.Add(-time.Millisecond)
	return
}

// MonthWindows returns the this-month and last-month comparison ranges.
// The previous month runs through its final instant at millisecond precision.
func MonthWindows(now time.Time) (thisStart, thisEnd, lastStart, lastEnd time.Time) {
	thisStart = startOfMonth(now)
	thisEnd = now
	lastStart = thisStart.AddDate(0, -1, 0)
	lastEnd = thisStart.Add(-time.Millisecond)
	return
}

func startOfWeek(now time.Time) time.Time {
	// Weekday is 0 on Sunday, mirroring the week anchor the client expects.
	d := now.AddDate(0, 0, -int(now.Weekday()))
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location())
}

func startOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// SumIncome totals the income transactions in the slice.
func SumIncome(txs []Transaction) Money {
	var cents int64
	for _, t := range txs {
		if t.IsIncome {
			cents += t.Amount.Cents
		}
	}
	return Money{Cents: cents}
}

// SumSpending totals the expense transactions in the slice.
func SumSpending(txs []Transaction) Money {
	var cents int64
	for _, t := range txs {
		if !t.IsIncome {
			cents += t.Amount.Cents
		}
	}
	return Money{Cents: cents}
}

// CategoryBreakdown groups expense transactions by category, carrying the
// first-seen name/color/icon for each group, and ranks the groups by amount
// descending. Ties keep encounter order. Each percentage is the group's
// rounded share of total spending, or 0 when there was no spending at all.
func CategoryBreakdown(txs []Transaction) []CategoryStat {
	spending := SumSpending(txs)

	index := make(map[string]int)
	var stats []CategoryStat
	for _, t := range txs {
		if t.IsIncome {
			continue
		}
		if i, ok := index[t.CategoryID]; ok {
			stats[i].Amount.Cents += t.Amount.Cents
			continue
		}
		index[t.CategoryID] = len(stats)
		stats = append(stats, CategoryStat{
			ID:     t.CategoryID,
			Name:   t.CategoryName,
			Amount: t.Amount,
			Color:  t.CategoryColor,
			Icon:   t.CategoryIcon,
		})
	}

	for i := range stats {
		stats[i].Percentage = share(stats[i].Amount, spending)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Amount.Cents > stats[j].Amount.Cents
	})
	return stats
}

// NewSpendingTrend builds a comparison between two adjacent windows.
// A zero previous window yields percentage 0, never a division error.
func NewSpendingTrend(current, previous Money) SpendingTrend {
	trend := SpendingTrend{Current: current, Previous: previous}
	if previous.Cents > 0 {
		delta := float64(current.Cents - previous.Cents)
		trend.Percentage = int(math.Round(delta / float64(previous.Cents) * 100))
	}
	return trend
}

// TotalBalance derives the running balance from the user's initial balance
// and the signed all-time transaction history, floored at zero: the client
// never shows a negative balance.
func TotalBalance(initial, totalIncome, totalSpending Money) Money {
	cents := initial.Cents + totalIncome.Cents - totalSpending.Cents
	if cents < 0 {
		cents = 0
	}
	return Money{Cents: cents}
}

func share(amount, total Money) int {
	if total.Cents <= 0 {
		return 0
	}
	return int(math.Round(float64(amount.Cents) / float64(total.Cents) * 100))
}
