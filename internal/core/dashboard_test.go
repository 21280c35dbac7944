package core

import (
	"testing"
	"time"
)

func expense(category, name string, cents int64) Transaction {
	return Transaction{
		ID:           "t-" + category,
		UserID:       "u1",
		Amount:       Money{Cents: cents},
		CategoryID:   category,
		CategoryName: name,
		Date:         time.Now(),
		Time:         time.Now(),
	}
}

func income(cents int64) Transaction {
	t := expense("salary", "Salary", cents)
	t.IsIncome = true
	return t
}

func TestResolvePeriod(t *testing.T) {
	// Wednesday 2025-06-18 15:04:05 local time.
	now := time.Date(2025, 6, 18, 15, 4, 5, 0, time.Local)

	cases := []struct {
		period string
		start  time.Time
	}{
		{"today", time.Date(2025, 6, 18, 0, 0, 0, 0, time.Local)},
		{"week", time.Date(2025, 6, 15, 0, 0, 0, 0, time.Local)}, // most recent Sunday
		{"month", time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)},
		{"year", time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)},
		{"quarter", time.Date(2025, 6, 18, 0, 0, 0, 0, time.Local)}, // unrecognized -> today
		{"", time.Date(2025, 6, 18, 0, 0, 0, 0, time.Local)},
	}
	for _, tc := range cases {
		start, end := ResolvePeriod(tc.period, now)
		if !start.Equal(tc.start) {
			t.Errorf("ResolvePeriod(%q) start = %v, want %v", tc.period, start, tc.start)
		}
		if !end.Equal(now) {
			t.Errorf("ResolvePeriod(%q) end = %v, want now", tc.period, end)
		}
	}
}

func TestResolvePeriodWeekOnSunday(t *testing.T) {
	// When now is a Sunday, the week starts that same day at midnight.
	now := time.Date(2025, 6, 15, 9, 30, 0, 0, time.Local)
	start, _ := ResolvePeriod("week", now)
	want := time.Date(2025, 6, 15, 0, 0, 0, 0, time.Local)
	if !start.Equal(want) {
		t.Fatalf("week start on Sunday = %v, want %v", start, want)
	}
}

func TestWeekWindows(t *testing.T) {
	now := time.Date(2025, 6, 18, 15, 4, 5, 0, time.Local)
	thisStart, thisEnd, lastStart, lastEnd := WeekWindows(now)

	if want := time.Date(2025, 6, 15, 0, 0, 0, 0, time.Local); !thisStart.Equal(want) {
		t.Errorf("thisStart = %v, want %v", thisStart, want)
	}
	if !thisEnd.Equal(now) {
		t.Errorf("thisEnd = %v, want now", thisEnd)
	}
	if want := time.Date(2025, 6, 8, 0, 0, 0, 0, time.Local); !lastStart.Equal(want) {
		t.Errorf("lastStart = %v, want %v", lastStart, want)
	}
	// Last week ends 1ms before this week starts.
	if want := thisStart.Add(-time.Millisecond); !lastEnd.Equal(want) {
		t.Errorf("lastEnd = %v, want %v", lastEnd, want)
	}
	if !lastEnd.Before(thisStart) {
		t.Error("windows overlap")
	}
}

func TestMonthWindows(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	thisStart, _, lastStart, lastEnd := MonthWindows(now)

	if want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local); !thisStart.Equal(want) {
		t.Errorf("thisStart = %v, want %v", thisStart, want)
	}
	if want := time.Date(2025, 2, 1, 0, 0, 0, 0, time.Local); !lastStart.Equal(want) {
		t.Errorf("lastStart = %v, want %v", lastStart, want)
	}
	// Final instant of February at millisecond precision.
	if want := time.Date(2025, 2, 28, 23, 59, 59, 999000000, time.Local); !lastEnd.Equal(want) {
		t.Errorf("lastEnd = %v, want %v", lastEnd, want)
	}
}

func TestMonthWindowsJanuary(t *testing.T) {
	now := time.Date(2025, 1, 5, 8, 0, 0, 0, time.Local)
	_, _, lastStart, lastEnd := MonthWindows(now)
	if want := time.Date(2024, 12, 1, 0, 0, 0, 0, time.Local); !lastStart.Equal(want) {
		t.Errorf("lastStart = %v, want %v", lastStart, want)
	}
	if want := time.Date(2024, 12, 31, 23, 59, 59, 999000000, time.Local); !lastEnd.Equal(want) {
		t.Errorf("lastEnd = %v, want %v", lastEnd, want)
	}
}

func TestSumsMatchSignedTotal(t *testing.T) {
	txs := []Transaction{
		income(5000),
		expense("food", "Food", 1200),
		income(300),
		expense("taxi", "Taxi", 800),
	}
	in := SumIncome(txs)
	out := SumSpending(txs)
	if in.Cents != 5300 {
		t.Errorf("income = %d, want 5300", in.Cents)
	}
	if out.Cents != 2000 {
		t.Errorf("spending = %d, want 2000", out.Cents)
	}

	var signed int64
	for _, tx := range txs {
		if tx.IsIncome {
			signed += tx.Amount.Cents
		} else {
			signed -= tx.Amount.Cents
		}
	}
	if in.Cents-out.Cents != signed {
		t.Errorf("income-spending = %d, want signed sum %d", in.Cents-out.Cents, signed)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	a := expense("food", "Food", 3000)
	b := expense("food", "Food", 7000)
	c := expense("taxi", "Taxi", 2500)
	d := income(100000) // ignored

	stats := CategoryBreakdown([]Transaction{a, c, b, d})
	if len(stats) != 2 {
		t.Fatalf("got %d categories, want 2", len(stats))
	}
	if stats[0].ID != "food" || stats[0].Amount.Cents != 10000 {
		t.Errorf("top category = %+v, want food/10000", stats[0])
	}
	if stats[1].ID != "taxi" || stats[1].Amount.Cents != 2500 {
		t.Errorf("second category = %+v, want taxi/2500", stats[1])
	}
	// 10000/12500 = 80%, 2500/12500 = 20%
	if stats[0].Percentage != 80 || stats[1].Percentage != 20 {
		t.Errorf("percentages = %d/%d, want 80/20", stats[0].Percentage, stats[1].Percentage)
	}

	var sum int
	for _, s := range stats {
		sum += s.Percentage
	}
	if sum < 99 || sum > 101 {
		t.Errorf("percentages sum to %d, want ~100", sum)
	}
}

func TestCategoryBreakdownSingleCategory(t *testing.T) {
	stats := CategoryBreakdown([]Transaction{
		expense("food", "Food", 3000),
		expense("food", "Food", 7000),
	})
	if len(stats) != 1 {
		t.Fatalf("got %d categories, want 1", len(stats))
	}
	if stats[0].Amount.Cents != 10000 || stats[0].Percentage != 100 {
		t.Fatalf("got amount=%d pct=%d, want 10000/100", stats[0].Amount.Cents, stats[0].Percentage)
	}
}

func TestCategoryBreakdownZeroSpending(t *testing.T) {
	if stats := CategoryBreakdown([]Transaction{income(5000)}); len(stats) != 0 {
		t.Fatalf("expected no categories for income-only input, got %d", len(stats))
	}
}

func TestCategoryBreakdownStableTies(t *testing.T) {
	stats := CategoryBreakdown([]Transaction{
		expense("a", "A", 500),
		expense("b", "B", 500),
		expense("c", "C", 500),
	})
	if stats[0].ID != "a" || stats[1].ID != "b" || stats[2].ID != "c" {
		t.Fatalf("tie order not stable: %s %s %s", stats[0].ID, stats[1].ID, stats[2].ID)
	}
}

func TestCategoryBreakdownKeepsFirstSeenMetadata(t *testing.T) {
	first := expense("food", "Food", 1000)
	first.CategoryColor = "#ff0000"
	first.CategoryIcon = "burger"
	second := expense("food", "Groceries", 2000)
	second.CategoryColor = "#00ff00"
	second.CategoryIcon = "cart"

	stats := CategoryBreakdown([]Transaction{first, second})
	if stats[0].Name != "Food" || stats[0].Color != "#ff0000" || stats[0].Icon != "burger" {
		t.Fatalf("metadata not first-seen: %+v", stats[0])
	}
}

func TestNewSpendingTrend(t *testing.T) {
	cases := []struct {
		name     string
		current  int64
		previous int64
		want     int
	}{
		{"increase", 150, 100, 50},
		{"decrease", 50, 100, -50},
		{"flat", 100, 100, 0},
		{"zero baseline", 5000, 0, 0}, // never a division error
		{"both zero", 0, 0, 0},
		{"rounding", 100, 300, -67},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NewSpendingTrend(Money{Cents: tc.current}, Money{Cents: tc.previous})
			if got.Percentage != tc.want {
				t.Errorf("percentage = %d, want %d", got.Percentage, tc.want)
			}
			if got.Current.Cents != tc.current || got.Previous.Cents != tc.previous {
				t.Errorf("windows not carried through: %+v", got)
			}
		})
	}
}

func TestTotalBalance(t *testing.T) {
	cases := []struct {
		name                      string
		initial, income, spending int64
		want                      int64
	}{
		{"plain", 10000, 5000, 3000, 12000},
		{"clamped", 0, 0, 100000, 0},
		{"exact zero", 500, 0, 500, 0},
		{"no initial", 0, 2000, 500, 1500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := TotalBalance(Money{Cents: tc.initial}, Money{Cents: tc.income}, Money{Cents: tc.spending})
			if got.Cents != tc.want {
				t.Errorf("balance = %d, want %d", got.Cents, tc.want)
			}
			if got.Cents < 0 {
				t.Error("balance must never be negative")
			}
		})
	}
}
