package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"kakeibo/internal/core"
)

type transactionRequest struct {
	Amount        json.Number `json:"amount"`
	IsIncome      bool        `json:"isIncome"`
	CategoryID    string      `json:"categoryId"`
	CategoryName  string      `json:"categoryName"`
	CategoryIcon  string      `json:"categoryIcon"`
	CategoryColor string      `json:"categoryColor"`
	Note          string      `json:"note"`
	Date          string      `json:"date"`
	Time          string      `json:"time"`
	Image         string      `json:"image"`
}

type transactionResponse struct {
	ID            string  `json:"id"`
	Amount        float64 `json:"amount"`
	IsIncome      bool    `json:"isIncome"`
	CategoryID    string  `json:"categoryId"`
	CategoryName  string  `json:"categoryName"`
	CategoryIcon  string  `json:"categoryIcon,omitempty"`
	CategoryColor string  `json:"categoryColor,omitempty"`
	Note          string  `json:"note,omitempty"`
	Date          string  `json:"date"`
	Time          string  `json:"time"`
	Image         string  `json:"image,omitempty"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
}

type pageResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	Limit        int                   `json:"limit"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		Amount:        t.Amount.Units(),
		IsIncome:      t.IsIncome,
		CategoryID:    t.CategoryID,
		CategoryName:  t.CategoryName,
		CategoryIcon:  t.CategoryIcon,
		CategoryColor: t.CategoryColor,
		Note:          t.Note,
		Date:          t.Date.UTC().Format(time.RFC3339),
		Time:          t.Time.UTC().Format(time.RFC3339),
		Image:         t.Image,
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// toTransaction builds the domain transaction from a request body. Field
// validation beyond parsing happens in the service.
func (req transactionRequest) toTransaction(userID string) (core.Transaction, error) {
	cents, err := core.ParseDecimalToCents(req.Amount.String())
	if err != nil {
		return core.Transaction{}, err
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return core.Transaction{}, core.ErrMissingDate
	}

	at := date
	if req.Time != "" {
		if at, err = parseDate(req.Time); err != nil {
			return core.Transaction{}, core.ErrMissingDate
		}
	}

	return core.Transaction{
		UserID:        userID,
		Amount:        core.Money{Cents: cents},
		IsIncome:      req.IsIncome,
		CategoryID:    req.CategoryID,
		CategoryName:  req.CategoryName,
		CategoryIcon:  req.CategoryIcon,
		CategoryColor: req.CategoryColor,
		Note:          req.Note,
		Date:          date,
		Time:          at,
		Image:         req.Image,
	}, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := req.toTransaction(userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, err := s.transactions.Create(r.Context(), t)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, "transaction created", toTransactionResponse(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.transactions.Get(r.Context(), r.PathValue("id"), userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "", toTransactionResponse(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := req.toTransaction(userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	t.ID = r.PathValue("id")

	updated, err := s.transactions.Update(r.Context(), t)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "transaction updated", toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.transactions.Delete(r.Context(), r.PathValue("id"), userID(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "transaction deleted", nil)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	var from, to *time.Time
	if startDate := q.Get("startDate"); startDate != "" {
		t, err := parseDate(startDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid startDate")
			return
		}
		from = &t
	}
	if endDate := q.Get("endDate"); endDate != "" {
		t, err := parseDate(endDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid endDate")
			return
		}
		to = &t
	}
	// A one-sided range degrades to no range, the listing stays inclusive.
	if (from == nil) != (to == nil) {
		from, to = nil, nil
	}

	result, err := s.transactions.List(r.Context(), userID(r), page, limit, from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := pageResponse{
		Transactions: make([]transactionResponse, 0, len(result.Transactions)),
		Total:        result.Total,
		Page:         result.Page,
		Limit:        result.Limit,
	}
	for _, t := range result.Transactions {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, "", resp)
}
