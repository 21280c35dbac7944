// Package memory provides an in-memory implementation of the storage
// interfaces. It backs unit tests and the DATA_BACKEND=memory mode used for
// local development without a database file.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

type session struct {
	userID    string
	expiresAt time.Time
}

type Store struct {
	mu           sync.RWMutex
	transactions map[string]core.Transaction
	users        map[string]core.User
	sessions     map[string]session
	syncStatus   map[string]string

	// now is swappable in tests that need deterministic timestamps.
	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		transactions: make(map[string]core.Transaction),
		users:        make(map[string]core.User),
		sessions:     make(map[string]session),
		syncStatus:   make(map[string]string),
		now:          time.Now,
	}
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.transactions[t.ID] = t
	s.syncStatus[t.ID] = storage.SyncPending
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, id, userID string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[t.ID]
	if !ok || existing.UserID != t.UserID {
		return core.Transaction{}, storage.ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.now()
	s.transactions[t.ID] = t
	s.syncStatus[t.ID] = storage.SyncPending
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.transactions, id)
	delete(s.syncStatus, id)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, page, limit int, from, to *time.Time) ([]core.Transaction, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []core.Transaction
	for _, t := range s.transactions {
		if t.UserID != userID {
			continue
		}
		if from != nil && to != nil && !inRange(t.Date, *from, *to) {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (page - 1) * limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *Store) ListInRange(_ context.Context, userID string, from, to time.Time, isIncome *bool) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []core.Transaction
	for _, t := range s.transactions {
		if t.UserID != userID || !inRange(t.Date, from, to) {
			continue
		}
		if isIncome != nil && t.IsIncome != *isIncome {
			continue
		}
		matched = append(matched, t)
	}
	sortByDate(matched)
	return matched, nil
}

func (s *Store) ListByFlag(_ context.Context, userID string, isIncome bool) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []core.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID && t.IsIncome == isIncome {
			matched = append(matched, t)
		}
	}
	sortByDate(matched)
	return matched, nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return core.User{}, storage.ErrUsernameTaken
		}
	}
	now := s.now()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, storage.ErrNotFound
}

func (s *Store) SetInitialBalance(_ context.Context, userID string, balance core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	u.InitialBalance = balance
	u.HasSetInitialBalance = true
	u.UpdatedAt = s.now()
	s.users[userID] = u
	return nil
}

func (s *Store) CreateSession(_ context.Context, token, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[token] = session{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *Store) GetSession(_ context.Context, token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok || !s.now().Before(sess.expiresAt) {
		return "", storage.ErrNotFound
	}
	return sess.userID, nil
}

func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}

func (s *Store) GetPendingSyncTransactions(_ context.Context, limit int) ([]storage.PendingSyncTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []storage.PendingSyncTransaction
	for id, status := range s.syncStatus {
		if status != storage.SyncPending {
			continue
		}
		if t, ok := s.transactions[id]; ok {
			pending = append(pending, storage.PendingSyncTransaction{ID: id, CreatedAt: t.CreatedAt})
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Store) GetTransactionByID(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) MarkSynced(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return storage.ErrNotFound
	}
	s.syncStatus[id] = storage.SyncDone
	return nil
}

func (s *Store) MarkSyncError(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return storage.ErrNotFound
	}
	s.syncStatus[id] = storage.SyncError
	return nil
}

func (s *Store) Close() error { return nil }

func inRange(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

func sortByDate(txs []core.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})
}
