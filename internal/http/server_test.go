package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kakeibo/internal/auth"
	"kakeibo/internal/services"
	"kakeibo/internal/storage/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.NewStore()
	srv := NewServer(
		":0",
		services.NewTransactionService(store, nil),
		services.NewDashboardService(store),
		auth.NewService(store, time.Hour),
		store,
	)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	if dst != nil {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatalf("decode data: %v (body: %s)", err, rec.Body.String())
		}
	}
}

func registerUser(t *testing.T, srv *Server, username string) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"password": "s3cret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var session struct {
		Token string `json:"token"`
	}
	decodeData(t, rec, &session)
	return session.Token
}

func createTransaction(t *testing.T, srv *Server, token string, body map[string]any) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var tx struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &tx)
	return tx.ID
}

func expenseBody(amount string, category string) map[string]any {
	return map[string]any{
		"amount":       json.Number(amount),
		"isIncome":     false,
		"categoryId":   category,
		"categoryName": category,
		"date":         time.Now().UTC().Format(time.RFC3339),
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "alice")

	rec := doJSON(t, srv, http.MethodGet, "/api/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var me struct {
		Username             string `json:"username"`
		HasSetInitialBalance bool   `json:"hasSetInitialBalance"`
	}
	decodeData(t, rec, &me)
	if me.Username != "alice" || me.HasSetInitialBalance {
		t.Errorf("me = %+v, want alice with unset balance", me)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, "/api/users/me", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d, want 401", rec.Code)
	}
}

func TestRequestsRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	paths := map[string]string{
		http.MethodGet:  "/api/transactions",
		http.MethodPost: "/api/transactions",
	}
	for method, path := range paths {
		rec := doJSON(t, srv, method, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token = %d, want 401", method, path, rec.Code)
		}
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard", "bogus-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("dashboard with bogus token = %d, want 401", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "alice")

	rec := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login with wrong password = %d, want 401", rec.Code)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "alice")

	rec := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"password": "other",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register = %d, want 409", rec.Code)
	}
}

func TestTransactionCRUD(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "alice")

	id := createTransaction(t, srv, token, expenseBody("12.34", "food"))

	rec := doJSON(t, srv, http.MethodGet, "/api/transactions/"+id, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var tx struct {
		Amount   float64 `json:"amount"`
		IsIncome bool    `json:"isIncome"`
	}
	decodeData(t, rec, &tx)
	if tx.Amount != 12.34 || tx.IsIncome {
		t.Errorf("tx = %+v, want 12.34 expense", tx)
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/transactions/"+id, token, expenseBody("20", "rent"))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodDelete, "/api/transactions/"+id, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions/"+id, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestTransactionValidation(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "alice")

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"zero amount", expenseBody("0", "food"), http.StatusUnprocessableEntity},
		{"negative amount", expenseBody("-5", "food"), http.StatusUnprocessableEntity},
		{"missing category", map[string]any{
			"amount": json.Number("10"),
			"date":   time.Now().UTC().Format(time.RFC3339),
		}, http.StatusUnprocessableEntity},
		{"missing date", map[string]any{
			"amount":       json.Number("10"),
			"categoryId":   "food",
			"categoryName": "Food",
		}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/transactions", token, tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestTransactionIsolationBetweenUsers(t *testing.T) {
	srv := newTestServer(t)
	aliceToken := registerUser(t, srv, "alice")
	bobToken := registerUser(t, srv, "bob")

	id := createTransaction(t, srv, aliceToken, expenseBody("10", "food"))

	// Another user sees NotFound, not Forbidden: resource existence is
	// never disclosed across accounts.
	rec := doJSON(t, srv, http.MethodGet, "/api/transactions/"+id, bobToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-user get = %d, want 404", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodDelete, "/api/transactions/"+id, bobToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-user delete = %d, want 404", rec.Code)
	}
}

func TestListTransactionsPagination(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "alice")

	for i := 0; i < 5; i++ {
		createTransaction(t, srv, token, expenseBody(fmt.Sprintf("%d", i+1), "food"))
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/transactions?page=1&limit=2", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var page struct {
		Transactions []json.RawMessage `json:"transactions"`
		Total        int64             `json:"total"`
		Page         int               `json:"page"`
		Limit        int               `json:"limit"`
	}
	decodeData(t, rec, &page)
	if page.Total != 5 || len(page.Transactions) != 2 || page.Page != 1 || page.Limit != 2 {
		t.Errorf("page = %+v, want total 5, 2 items", page)
	}
}

func TestDashboard(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "alice")

	rec := doJSON(t, srv, http.MethodPut, "/api/users/initial-balance", token, map[string]any{
		"initialBalance": json.Number("100"),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("initial balance status = %d, body = %s", rec.Code, rec.Body.String())
	}

	createTransaction(t, srv, token, expenseBody("30", "food"))
	createTransaction(t, srv, token, expenseBody("70", "food"))
	createTransaction(t, srv, token, map[string]any{
		"amount":       json.Number("50"),
		"isIncome":     true,
		"categoryId":   "salary",
		"categoryName": "Salary",
		"date":         time.Now().UTC().Format(time.RFC3339),
	})

	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard?period=today", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var d dashboardResponse
	decodeData(t, rec, &d)

	if d.TotalBalance != 50 { // 100 + 50 - 100
		t.Errorf("totalBalance = %v, want 50", d.TotalBalance)
	}
	if d.Income != 50 || d.Spending != 100 {
		t.Errorf("income/spending = %v/%v, want 50/100", d.Income, d.Spending)
	}
	if len(d.Categories) != 1 {
		t.Fatalf("categories = %+v, want one entry", d.Categories)
	}
	if d.Categories[0].Amount != 100 || d.Categories[0].Percentage != 100 {
		t.Errorf("category = %+v, want amount 100 at 100%%", d.Categories[0])
	}
	if d.WeeklySpending.ThisWeek != 100 || d.MonthlySpending.ThisMonth != 100 {
		t.Errorf("trends = %+v / %+v, want 100 current spending", d.WeeklySpending, d.MonthlySpending)
	}
}

func TestDashboardUnknownPeriod(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "alice")

	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard?period=quarter", token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("dashboard with unknown period = %d, want 200 (degrades to today)", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{})
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "alice")

	var limited bool
	for i := 0; i < 70; i++ {
		rec := doJSON(t, srv, http.MethodPost, "/api/transactions", token, expenseBody("1", "food"))
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("expected a 429 after exceeding the per-minute limit")
	}
}
