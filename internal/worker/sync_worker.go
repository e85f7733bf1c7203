// Package worker runs spreadsheet syncs outside the request path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yerko-henz/receipts-registry-sub000/internal/amqp"
	"github.com/yerko-henz/receipts-registry-sub000/internal/auth"
	"github.com/yerko-henz/receipts-registry-sub000/internal/services"
	"github.com/yerko-henz/receipts-registry-sub000/internal/storage"
)

// SyncWorker consumes sync requests and runs the periodic sweep that covers
// lost messages.
type SyncWorker struct {
	storage  *storage.SQLiteRepository
	receipts *services.ReceiptService
}

func NewSyncWorker(storage *storage.SQLiteRepository, receipts *services.ReceiptService) *SyncWorker {
	return &SyncWorker{
		storage:  storage,
		receipts: receipts,
	}
}

// HandleSyncRequest processes a single sync request from AMQP.
func (w *SyncWorker) HandleSyncRequest(ctx context.Context, msg *amqp.SyncRequestMessage) error {
	result, err := w.receipts.Sync(ctx, msg.UserID)
	if err != nil {
		// Requeueing cannot fix a missing grant; drop and wait for sign-in.
		if auth.IsAuthenticationError(err) {
			slog.WarnContext(ctx, "Sync skipped, sign-in required", "user_id", msg.UserID)
			return nil
		}
		return fmt.Errorf("sync user %s: %w", msg.UserID, err)
	}

	slog.InfoContext(ctx, "Sync request done",
		"user_id", msg.UserID,
		"synced", result.SyncedCount,
		"spreadsheet_id", result.SpreadsheetID)

	return nil
}

// SweepAllUsers syncs every user that owns receipts. It is the backup for
// lost AMQP messages; one failing user does not stop the sweep.
func (w *SyncWorker) SweepAllUsers(ctx context.Context) error {
	users, err := w.storage.ListUsersWithReceipts(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var errs []error
	for _, userID := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := w.receipts.Sync(ctx, userID); err != nil {
			if auth.IsAuthenticationError(err) {
				slog.WarnContext(ctx, "Sweep skipped user, sign-in required", "user_id", userID)
				continue
			}
			slog.ErrorContext(ctx, "Sweep sync failed", "user_id", userID, "error", err)
			errs = append(errs, fmt.Errorf("user %s: %w", userID, err))
		}
	}
	return errors.Join(errs...)
}
