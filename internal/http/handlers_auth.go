package http

import (
	"encoding/json"
	"net/http"

	"kakeibo/internal/core"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID                   string  `json:"id"`
	Username             string  `json:"username"`
	Email                string  `json:"email,omitempty"`
	Name                 string  `json:"name,omitempty"`
	InitialBalance       float64 `json:"initialBalance"`
	HasSetInitialBalance bool    `json:"hasSetInitialBalance"`
}

type sessionResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

func toUserResponse(u core.User) userResponse {
	return userResponse{
		ID:                   u.ID,
		Username:             u.Username,
		Email:                u.Email,
		Name:                 u.Name,
		InitialBalance:       u.InitialBalance.Units(),
		HasSetInitialBalance: u.HasSetInitialBalance,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := s.auth.Register(r.Context(), req.Username, req.Email, req.Name, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, "user registered", sessionResponse{
		User:  toUserResponse(user),
		Token: token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, "logged in", sessionResponse{
		User:  toUserResponse(user),
		Token: token,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "logged out", nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetUserByID(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "", toUserResponse(user))
}

type initialBalanceRequest struct {
	InitialBalance json.Number `json:"initialBalance"`
}

func (s *Server) handleSetInitialBalance(w http.ResponseWriter, r *http.Request) {
	var req initialBalanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Zero is a legal starting balance, so this does not go through the
	// transaction amount parser.
	balance, err := core.ParseBalanceToCents(req.InitialBalance.String())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid initial balance")
		return
	}

	if err := s.users.SetInitialBalance(r.Context(), userID(r), balance); err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := s.users.GetUserByID(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "initial balance set", toUserResponse(user))
}
