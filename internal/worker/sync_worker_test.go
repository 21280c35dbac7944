package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/storage/memory"
)

type fakeSheet struct {
	appended []string
	deleted  []string
	err      error
}

func (f *fakeSheet) Append(_ context.Context, t core.Transaction) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.appended = append(f.appended, t.ID)
	return "Transactions!A2:G2", nil
}

func (f *fakeSheet) Delete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func seedTransaction(t *testing.T, store *memory.Store) core.Transaction {
	t.Helper()
	date := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	tx, err := store.CreateTransaction(context.Background(), core.Transaction{
		UserID:       "user-1",
		Amount:       core.Money{Cents: 1200},
		CategoryID:   "food",
		CategoryName: "Food",
		Date:         date,
		Time:         date,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	return tx
}

func TestHandleMessageUpsert(t *testing.T) {
	store := memory.NewStore()
	sheet := &fakeSheet{}
	w := NewSyncWorker(store, sheet, sheet, 10)

	tx := seedTransaction(t, store)

	if err := w.HandleMessage(context.Background(), amqp.NewTransactionSyncMessage(tx.ID)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if len(sheet.appended) != 1 || sheet.appended[0] != tx.ID {
		t.Errorf("appended = %v, want [%s]", sheet.appended, tx.ID)
	}

	pending, err := store.GetPendingSyncTransactions(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after sync = %d, want 0", len(pending))
	}
}

func TestHandleMessageDelete(t *testing.T) {
	store := memory.NewStore()
	sheet := &fakeSheet{}
	w := NewSyncWorker(store, sheet, sheet, 10)

	if err := w.HandleMessage(context.Background(), amqp.NewTransactionDeleteMessage("tx-gone")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if len(sheet.deleted) != 1 || sheet.deleted[0] != "tx-gone" {
		t.Errorf("deleted = %v, want [tx-gone]", sheet.deleted)
	}
}

func TestHandleMessageDeleteWithoutDeleter(t *testing.T) {
	store := memory.NewStore()
	w := NewSyncWorker(store, &fakeSheet{}, nil, 10)

	if err := w.HandleMessage(context.Background(), amqp.NewTransactionDeleteMessage("tx-1")); err != nil {
		t.Errorf("HandleMessage() without deleter error = %v, want nil", err)
	}
}

func TestHandleMessageUnknownTransaction(t *testing.T) {
	store := memory.NewStore()
	w := NewSyncWorker(store, &fakeSheet{}, nil, 10)

	if err := w.HandleMessage(context.Background(), amqp.NewTransactionSyncMessage("missing")); err == nil {
		t.Error("HandleMessage() for missing transaction should fail so the delivery requeues")
	}
}

func TestSyncFailureMarksError(t *testing.T) {
	store := memory.NewStore()
	sheet := &fakeSheet{err: errors.New("sheets down")}
	w := NewSyncWorker(store, sheet, sheet, 10)

	tx := seedTransaction(t, store)

	if err := w.HandleMessage(context.Background(), amqp.NewTransactionSyncMessage(tx.ID)); err == nil {
		t.Fatal("HandleMessage() should propagate the append failure")
	}

	// The record left the pending queue so the poller does not retry it
	// forever.
	pending, err := store.GetPendingSyncTransactions(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after failure = %d, want 0 (marked as error)", len(pending))
	}
}

func TestProcessPendingTransactions(t *testing.T) {
	store := memory.NewStore()
	sheet := &fakeSheet{}
	w := NewSyncWorker(store, sheet, sheet, 10)

	first := seedTransaction(t, store)
	second := seedTransaction(t, store)

	if err := w.ProcessPendingTransactions(context.Background()); err != nil {
		t.Fatalf("ProcessPendingTransactions() error = %v", err)
	}
	if len(sheet.appended) != 2 {
		t.Fatalf("appended = %v, want both %s and %s", sheet.appended, first.ID, second.ID)
	}

	// Second run finds nothing to do.
	sheet.appended = nil
	if err := w.ProcessPendingTransactions(context.Background()); err != nil {
		t.Fatalf("ProcessPendingTransactions() second run error = %v", err)
	}
	if len(sheet.appended) != 0 {
		t.Errorf("appended on second run = %v, want none", sheet.appended)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	store := memory.NewStore()
	sheet := &fakeSheet{}
	w := NewSyncWorker(store, sheet, sheet, 2)

	for i := 0; i < 5; i++ {
		seedTransaction(t, store)
	}

	// Startup uses a larger batch than the periodic poll.
	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck() error = %v", err)
	}
	if len(sheet.appended) != 5 {
		t.Errorf("appended = %d, want 5", len(sheet.appended))
	}
}
