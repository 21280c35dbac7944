// Package worker synchronizes transactions from SQLite to Google Sheets.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/sheets"
	"kakeibo/internal/storage"
)

// SyncStore is the storage surface the worker needs.
type SyncStore interface {
	GetTransactionByID(ctx context.Context, id string) (core.Transaction, error)
	GetPendingSyncTransactions(ctx context.Context, limit int) ([]storage.PendingSyncTransaction, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// SyncWorker exports transactions to a spreadsheet as sync messages arrive,
// with a polling fallback for messages that were lost.
type SyncWorker struct {
	store     SyncStore
	writer    sheets.TransactionWriter
	deleter   sheets.TransactionDeleter
	batchSize int
}

func NewSyncWorker(store SyncStore, writer sheets.TransactionWriter, deleter sheets.TransactionDeleter, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:     store,
		writer:    writer,
		deleter:   deleter,
		batchSize: batchSize,
	}
}

// HandleMessage processes one sync message from AMQP. A returned error
// requeues the delivery.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"action", msg.Action)

	switch msg.Action {
	case amqp.ActionDelete:
		return w.handleDelete(ctx, msg.ID)
	default:
		return w.syncTransaction(ctx, msg.ID)
	}
}

func (w *SyncWorker) handleDelete(ctx context.Context, id string) error {
	if w.deleter == nil {
		slog.WarnContext(ctx, "No deleter configured, skipping sheet deletion", "id", id)
		return nil
	}
	if err := w.deleter.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction from sheet: %w", err)
	}
	slog.InfoContext(ctx, "Transaction removed from sheet", "id", id)
	return nil
}

func (w *SyncWorker) syncTransaction(ctx context.Context, id string) error {
	t, err := w.store.GetTransactionByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	rowRef, err := w.writer.Append(ctx, t)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append transaction to sheet: %w", err)
	}

	if err := w.store.MarkSynced(ctx, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}

	slog.InfoContext(ctx, "Transaction synced to sheet", "id", id, "row", rowRef)
	return nil
}

// ProcessPendingTransactions exports transactions that were never synced.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingTransactions(ctx context.Context) error {
	pending, err := w.store.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		if err := w.syncTransaction(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending transaction",
				"id", p.ID, "error", err)
		}
	}
	return nil
}

// StartupSyncCheck drains the pending backlog once at worker startup, using
// a larger batch to recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.GetPendingSyncTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	synced := 0
	failed := 0
	for _, p := range pending {
		if err := w.syncTransaction(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction during startup",
				"id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}
