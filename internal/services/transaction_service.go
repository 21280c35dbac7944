// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kakeibo/internal/core"
)

// TransactionStore is the persistence surface the transaction service needs.
// Both the SQLite repository and the in-memory store satisfy it.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id, userID string) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id, userID string) error
	ListTransactions(ctx context.Context, userID string, page, limit int, from, to *time.Time) ([]core.Transaction, int64, error)
}

// SyncPublisher publishes export notifications for the sheets worker.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, id string) error
	PublishTransactionDelete(ctx context.Context, id string) error
}

// TransactionService orchestrates transaction operations across storage and AMQP.
type TransactionService struct {
	store     TransactionStore
	publisher SyncPublisher
}

func NewTransactionService(store TransactionStore, publisher SyncPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
	}
}

// Page is one page of a transaction listing.
type Page struct {
	Transactions []core.Transaction
	Total        int64
	Page         int
	Limit        int
}

// Create validates and saves a transaction, then publishes a sync message.
// Publishing is best effort: the transaction is durable locally either way.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publishSync(ctx, created.ID)
	return created, nil
}

// Get returns a single transaction scoped to its owner.
func (s *TransactionService) Get(ctx context.Context, id, userID string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id, userID)
}

// Update validates and replaces a transaction, then re-queues it for export.
func (s *TransactionService) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}

	s.publishSync(ctx, updated.ID)
	return updated, nil
}

// Delete removes a transaction and publishes a delete message.
func (s *TransactionService) Delete(ctx context.Context, id, userID string) error {
	if err := s.store.DeleteTransaction(ctx, id, userID); err != nil {
		return err
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	if err := s.publisher.PublishTransactionDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", id, "error", err)
		// Don't fail the request, the record is gone locally.
	}
	return nil
}

// List returns one page of a user's transactions, newest first.
func (s *TransactionService) List(ctx context.Context, userID string, page, limit int, from, to *time.Time) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	txs, total, err := s.store.ListTransactions(ctx, userID, page, limit, from, to)
	if err != nil {
		return Page{}, fmt.Errorf("list transactions: %w", err)
	}
	return Page{Transactions: txs, Total: total, Page: page, Limit: limit}, nil
}

func (s *TransactionService) publishSync(ctx context.Context, id string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
		// Don't fail the request, the transaction is saved locally.
	}
}
