// Package auth provides password hashing, session tokens, and the HTTP
// middleware that resolves them to a user.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

// ErrInvalidCredentials covers both unknown usernames and wrong passwords so
// a caller cannot probe which usernames exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	tokenBytes      = 32
	DefaultTokenTTL = 30 * 24 * time.Hour
)

// Store is the persistence surface the auth service needs.
type Store interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	GetUserByID(ctx context.Context, id string) (core.User, error)
	CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error
	GetSession(ctx context.Context, token string) (string, error)
	DeleteSession(ctx context.Context, token string) error
}

type Service struct {
	store    Store
	tokenTTL time.Duration
	now      func() time.Time
}

func NewService(store Store, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Service{
		store:    store,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Register creates an account with a bcrypt-hashed password and opens a
// first session for it.
func (s *Service) Register(ctx context.Context, username, email, name, password string) (core.User, string, error) {
	username = strings.TrimSpace(username)
	u := core.User{
		Username: username,
		Email:    strings.TrimSpace(email),
		Name:     strings.TrimSpace(name),
	}
	if password == "" {
		return core.User{}, "", core.ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)

	if err := u.Validate(); err != nil {
		return core.User{}, "", err
	}

	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, "", err
	}

	token, err := s.openSession(ctx, created.ID)
	if err != nil {
		return core.User{}, "", err
	}
	return created, token, nil
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, username, password string) (core.User, string, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("lookup user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return core.User{}, "", ErrInvalidCredentials
	}

	token, err := s.openSession(ctx, u.ID)
	if err != nil {
		return core.User{}, "", err
	}
	return u, token, nil
}

// Logout revokes a session token. Revoking an unknown token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// Authenticate resolves a bearer token to a user id.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	userID, err := s.store.GetSession(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("lookup session: %w", err)
	}
	return userID, nil
}

func (s *Service) openSession(ctx context.Context, userID string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	if err := s.store.CreateSession(ctx, token, userID, s.now().Add(s.tokenTTL)); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
