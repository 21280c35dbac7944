package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"kakeibo/internal/core"
)

// ErrNotFound is returned when no row matches the given id and owner.
// A transaction that exists but belongs to another user is indistinguishable
// from one that does not exist at all.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned when registering a username that already has
// an account.
var ErrUsernameTaken = errors.New("username already taken")

// Sync states for the export worker.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const transactionColumns = `id, user_id, amount_cents, is_income, category_id, category_name,
	category_icon, category_color, note, date_ms, time_ms, image, created_at, updated_at`

// CreateTransaction assigns an id and bookkeeping timestamps and stores the
// record. The returned transaction reflects what was persisted.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := time.Now()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, amount_cents, is_income, category_id, category_name,
			category_icon, category_color, note, date_ms, time_ms, image,
			sync_status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Amount.Cents, boolToInt(t.IsIncome), t.CategoryID, t.CategoryName,
		t.CategoryIcon, t.CategoryColor, t.Note, t.Date.UnixMilli(), t.Time.UnixMilli(), t.Image,
		SyncPending, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"amount_cents", t.Amount.Cents,
		"is_income", t.IsIncome,
		"category_id", t.CategoryID)

	return t, nil
}

// GetTransaction returns one transaction scoped to its owner.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id, userID string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`,
		id, userID)
	return scanTransaction(row)
}

// UpdateTransaction replaces every client-supplied field of the transaction
// identified by (id, owner). Missing rows, including rows owned by someone
// else, report ErrNotFound.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET
			amount_cents = ?, is_income = ?, category_id = ?, category_name = ?,
			category_icon = ?, category_color = ?, note = ?, date_ms = ?, time_ms = ?,
			image = ?, sync_status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		t.Amount.Cents, boolToInt(t.IsIncome), t.CategoryID, t.CategoryName,
		t.CategoryIcon, t.CategoryColor, t.Note, t.Date.UnixMilli(), t.Time.UnixMilli(),
		t.Image, SyncPending, now.UnixMilli(),
		t.ID, t.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.Transaction{}, ErrNotFound
	}
	return r.GetTransaction(ctx, t.ID, t.UserID)
}

// DeleteTransaction removes the transaction identified by (id, owner).
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", userID)
	return nil
}

// ListTransactions returns one page of a user's transactions, newest first,
// optionally restricted to an inclusive date range, plus the total count for
// the same filter.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, page, limit int, from, to *time.Time) ([]core.Transaction, int64, error) {
	where := `WHERE user_id = ?`
	args := []any{userID}
	if from != nil && to != nil {
		where += ` AND date_ms BETWEEN ? AND ?`
		args = append(args, from.UnixMilli(), to.UnixMilli())
	}

	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	offset := (page - 1) * limit
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions `+where+
			` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// ListInRange returns all of a user's transactions whose date falls inside
// the inclusive [from, to] range. When isIncome is non-nil the result is
// further restricted to income or expense records.
func (r *SQLiteRepository) ListInRange(ctx context.Context, userID string, from, to time.Time, isIncome *bool) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = ? AND date_ms BETWEEN ? AND ?`
	args := []any{userID, from.UnixMilli(), to.UnixMilli()}
	if isIncome != nil {
		query += ` AND is_income = ?`
		args = append(args, boolToInt(*isIncome))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions in range: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// ListByFlag returns every transaction a user has ever recorded on one side
// of the ledger. The balance computation reduces over the full history.
func (r *SQLiteRepository) ListByFlag(ctx context.Context, userID string, isIncome bool) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND is_income = ?`,
		userID, boolToInt(isIncome))
	if err != nil {
		return nil, fmt.Errorf("list transactions by flag: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// CreateUser stores a new account. The username must be unique.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	now := time.Now()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, name, password_hash,
			initial_balance_cents, has_set_initial_balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.Name, u.PasswordHash,
		u.InitialBalance.Cents, boolToInt(u.HasSetInitialBalance),
		now.UnixMilli(), now.UnixMilli())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.User{}, ErrUsernameTaken
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "id", u.ID, "username", u.Username)
	return u, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	return r.getUser(ctx, `id = ?`, id)
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.getUser(ctx, `username = ?`, username)
}

func (r *SQLiteRepository) getUser(ctx context.Context, where string, arg any) (core.User, error) {
	var (
		u                core.User
		hasSet           int64
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, name, password_hash, initial_balance_cents,
			has_set_initial_balance, created_at, updated_at
		FROM users WHERE `+where, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.Name, &u.PasswordHash,
		&u.InitialBalance.Cents, &hasSet, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.HasSetInitialBalance = hasSet != 0
	u.CreatedAt = time.UnixMilli(created)
	u.UpdatedAt = time.UnixMilli(updated)
	return u, nil
}

// SetInitialBalance records the user-supplied starting balance used as the
// base of the running total-balance computation.
func (r *SQLiteRepository) SetInitialBalance(ctx context.Context, userID string, balance core.Money) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET initial_balance_cents = ?, has_set_initial_balance = 1, updated_at = ?
		WHERE id = ?`,
		balance.Cents, time.Now().UnixMilli(), userID)
	if err != nil {
		return fmt.Errorf("set initial balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateSession persists an opaque auth token with its expiry.
func (r *SQLiteRepository) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		token, userID, expiresAt.UnixMilli(), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession resolves a token back to its owning user id. Expired sessions
// report ErrNotFound.
func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (string, error) {
	var (
		userID    string
		expiresAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	if time.Now().UnixMilli() >= expiresAt {
		return "", ErrNotFound
	}
	return userID, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PendingSyncTransaction is the minimal data the export worker needs.
type PendingSyncTransaction struct {
	ID        string
	CreatedAt time.Time
}

// GetPendingSyncTransactions lists transactions not yet exported, oldest first.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at FROM transactions
		WHERE sync_status = ? ORDER BY created_at ASC LIMIT ?`,
		SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncTransaction
	for rows.Next() {
		var (
			p  PendingSyncTransaction
			ms int64
		)
		if err := rows.Scan(&p.ID, &ms); err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		p.CreatedAt = time.UnixMilli(ms)
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// GetTransactionByID looks a transaction up without owner scoping. Only the
// export worker uses this; everything client-facing goes through
// GetTransaction.
func (r *SQLiteRepository) GetTransactionByID(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

// MarkSynced marks a transaction as successfully exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = ?, synced_at = ? WHERE id = ?`,
		SyncDone, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a transaction as having failed export.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = ? WHERE id = ?`, SyncError, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                    core.Transaction
		isIncome             int64
		dateMs, timeMs       int64
		createdMs, updatedMs int64
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.Amount.Cents, &isIncome, &t.CategoryID, &t.CategoryName,
		&t.CategoryIcon, &t.CategoryColor, &t.Note, &dateMs, &timeMs, &t.Image,
		&createdMs, &updatedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.IsIncome = isIncome != 0
	t.Date = time.UnixMilli(dateMs)
	t.Time = time.UnixMilli(timeMs)
	t.CreatedAt = time.UnixMilli(createdMs)
	t.UpdatedAt = time.UnixMilli(updatedMs)
	return t, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
