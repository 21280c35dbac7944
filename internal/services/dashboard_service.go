package services

import (
	"context"
	"fmt"
	"time"

	"kakeibo/internal/core"
)

// DashboardStore is the read surface the dashboard aggregation needs.
type DashboardStore interface {
	ListInRange(ctx context.Context, userID string, from, to time.Time, isIncome *bool) ([]core.Transaction, error)
	ListByFlag(ctx context.Context, userID string, isIncome bool) ([]core.Transaction, error)
	GetUserByID(ctx context.Context, id string) (core.User, error)
}

// DashboardService computes the dashboard aggregate from raw transaction
// reads. Every request recomputes from storage; nothing is cached.
type DashboardService struct {
	store DashboardStore
	now   func() time.Time
}

func NewDashboardService(store DashboardStore) *DashboardService {
	return &DashboardService{
		store: store,
		now:   time.Now,
	}
}

// Build assembles the full dashboard for one user. The period selects the
// window for totals and the category breakdown; the week and month trends
// always compare the current window against the previous one regardless of
// the requested period. Any failed read fails the whole dashboard.
func (s *DashboardService) Build(ctx context.Context, userID, period string) (core.Dashboard, error) {
	now := s.now()

	start, end := core.ResolvePeriod(period, now)
	periodTxs, err := s.store.ListInRange(ctx, userID, start, end, nil)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load period transactions: %w", err)
	}

	expenses := false
	weekStart, weekEnd, lastWeekStart, lastWeekEnd := core.WeekWindows(now)
	thisWeek, err := s.store.ListInRange(ctx, userID, weekStart, weekEnd, &expenses)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load this week spending: %w", err)
	}
	lastWeek, err := s.store.ListInRange(ctx, userID, lastWeekStart, lastWeekEnd, &expenses)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load last week spending: %w", err)
	}

	monthStart, monthEnd, lastMonthStart, lastMonthEnd := core.MonthWindows(now)
	thisMonth, err := s.store.ListInRange(ctx, userID, monthStart, monthEnd, &expenses)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load this month spending: %w", err)
	}
	lastMonth, err := s.store.ListInRange(ctx, userID, lastMonthStart, lastMonthEnd, &expenses)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load last month spending: %w", err)
	}

	allIncome, err := s.store.ListByFlag(ctx, userID, true)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load income history: %w", err)
	}
	allSpending, err := s.store.ListByFlag(ctx, userID, false)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load spending history: %w", err)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load user: %w", err)
	}

	return core.Dashboard{
		TotalBalance: core.TotalBalance(user.InitialBalance, core.SumIncome(allIncome), core.SumSpending(allSpending)),
		Income:       core.SumIncome(periodTxs),
		Spending:     core.SumSpending(periodTxs),
		Categories:   core.CategoryBreakdown(periodTxs),
		Weekly:       core.NewSpendingTrend(core.SumSpending(thisWeek), core.SumSpending(lastWeek)),
		Monthly:      core.NewSpendingTrend(core.SumSpending(thisMonth), core.SumSpending(lastMonth)),
	}, nil
}
