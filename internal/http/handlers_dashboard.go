package http

import (
	"net/http"

	"kakeibo/internal/core"
)

type categoryResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Percentage int     `json:"percentage"`
	Color      string  `json:"color,omitempty"`
	Icon       string  `json:"icon,omitempty"`
}

type weeklySpendingResponse struct {
	ThisWeek   float64 `json:"thisWeek"`
	LastWeek   float64 `json:"lastWeek"`
	Percentage int     `json:"percentage"`
}

type monthlySpendingResponse struct {
	ThisMonth  float64 `json:"thisMonth"`
	LastMonth  float64 `json:"lastMonth"`
	Percentage int     `json:"percentage"`
}

type dashboardResponse struct {
	TotalBalance    float64                 `json:"totalBalance"`
	Income          float64                 `json:"income"`
	Spending        float64                 `json:"spending"`
	Categories      []categoryResponse      `json:"categories"`
	WeeklySpending  weeklySpendingResponse  `json:"weeklySpending"`
	MonthlySpending monthlySpendingResponse `json:"monthlySpending"`
}

func toDashboardResponse(d core.Dashboard) dashboardResponse {
	categories := make([]categoryResponse, 0, len(d.Categories))
	for _, c := range d.Categories {
		categories = append(categories, categoryResponse{
			ID:         c.ID,
			Name:       c.Name,
			Amount:     c.Amount.Units(),
			Percentage: c.Percentage,
			Color:      c.Color,
			Icon:       c.Icon,
		})
	}
	return dashboardResponse{
		TotalBalance: d.TotalBalance.Units(),
		Income:       d.Income.Units(),
		Spending:     d.Spending.Units(),
		Categories:   categories,
		WeeklySpending: weeklySpendingResponse{
			ThisWeek:   d.Weekly.Current.Units(),
			LastWeek:   d.Weekly.Previous.Units(),
			Percentage: d.Weekly.Percentage,
		},
		MonthlySpending: monthlySpendingResponse{
			ThisMonth:  d.Monthly.Current.Units(),
			LastMonth:  d.Monthly.Previous.Units(),
			Percentage: d.Monthly.Percentage,
		},
	}
}

// handleDashboard serves the aggregate view. An unrecognized period degrades
// to today rather than erroring.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")

	d, err := s.dashboard.Build(r.Context(), userID(r), period)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "", toDashboardResponse(d))
}
