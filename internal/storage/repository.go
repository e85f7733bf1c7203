package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/yerko-henz/receipts-registry-sub000/internal/core"

	_ "modernc.org/sqlite"
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

// SaveReceipt implements services.ReceiptStore
func (r *SQLiteRepository) SaveReceipt(ctx context.Context, userID string, rec core.ReceiptRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO receipts (id, user_id, transaction_date, merchant_name, total_cents, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, userID, rec.TransactionDate, rec.MerchantName,
		rec.Total.Cents, rec.ImageURL, rec.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}

	slog.InfoContext(ctx, "Receipt saved to SQLite",
		"id", rec.ID,
		"user_id", userID,
		"merchant", rec.MerchantName,
		"total_cents", rec.Total.Cents)

	return nil
}

// ListReceipts implements services.ReceiptStore
func (r *SQLiteRepository) ListReceipts(ctx context.Context, userID string) ([]core.ReceiptRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, transaction_date, merchant_name, total_cents, image_url, created_at
		FROM receipts
		WHERE user_id = ?
		ORDER BY created_at DESC, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	var out []core.ReceiptRecord
	for rows.Next() {
		var rec core.ReceiptRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.TransactionDate, &rec.MerchantName,
			&rec.Total.Cents, &rec.ImageURL, &createdAt); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for receipt %s: %w", rec.ID, err)
		}
		rec.CreatedAt = ts
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return out, nil
}

// GetSyncState implements services.ReceiptStore. A user with no prior sync
// gets the zero state, not an error.
func (r *SQLiteRepository) GetSyncState(ctx context.Context, userID string) (core.SyncState, error) {
	var state core.SyncState
	err := r.db.QueryRowContext(ctx, `
		SELECT spreadsheet_id, last_sync_timestamp
		FROM sync_state
		WHERE user_id = ?`,
		userID).Scan(&state.SpreadsheetID, &state.LastSyncTimestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SyncState{}, nil
	}
	if err != nil {
		return core.SyncState{}, fmt.Errorf("get sync state: %w", err)
	}
	return state, nil
}

// UpsertSyncState implements services.ReceiptStore
func (r *SQLiteRepository) UpsertSyncState(ctx context.Context, userID string, state core.SyncState) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (user_id, spreadsheet_id, last_sync_timestamp, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			spreadsheet_id = excluded.spreadsheet_id,
			last_sync_timestamp = excluded.last_sync_timestamp,
			updated_at = excluded.updated_at`,
		userID, state.SpreadsheetID, state.LastSyncTimestamp, now)
	if err != nil {
		return fmt.Errorf("upsert sync state: %w", err)
	}
	return nil
}

// ListUsersWithReceipts returns every user id that owns at least one receipt.
// The worker's periodic sweep syncs each of them.
func (r *SQLiteRepository) ListUsersWithReceipts(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM receipts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
