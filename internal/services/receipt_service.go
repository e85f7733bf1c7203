package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yerko-henz/receipts-registry-sub000/internal/core"
)

// ReceiptStore is the durable storage surface the service depends on.
type ReceiptStore interface {
	SaveReceipt(ctx context.Context, userID string, r core.ReceiptRecord) error
	ListReceipts(ctx context.Context, userID string) ([]core.ReceiptRecord, error)
	GetSyncState(ctx context.Context, userID string) (core.SyncState, error)
	UpsertSyncState(ctx context.Context, userID string, state core.SyncState) error
}

// SyncPublisher queues an asynchronous sync request for a user.
type SyncPublisher interface {
	PublishSyncRequest(ctx context.Context, userID string) error
}

// ReceiptService orchestrates receipt operations across storage, the
// spreadsheet sync engine and AMQP.
type ReceiptService struct {
	store ReceiptStore
	sync  *SyncService
	amqp  SyncPublisher

	group singleflight.Group
}

func NewReceiptService(store ReceiptStore, syncSvc *SyncService, publisher SyncPublisher) *ReceiptService {
	return &ReceiptService{
		store: store,
		sync:  syncSvc,
		amqp:  publisher,
	}
}

// CreateReceipt validates and saves a receipt locally, then queues an async
// sync request. Publish failure does not fail the request; the receipt is
// already saved and the next sync picks it up.
func (s *ReceiptService) CreateReceipt(ctx context.Context, userID string, r core.ReceiptRecord) (core.ReceiptRecord, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if err := r.Validate(); err != nil {
		return core.ReceiptRecord{}, err
	}

	if err := s.store.SaveReceipt(ctx, userID, r); err != nil {
		return core.ReceiptRecord{}, fmt.Errorf("save receipt: %w", err)
	}

	if s.amqp == nil {
		slog.WarnContext(ctx, "AMQP publisher not available, skipping sync request")
		return r, nil
	}
	if err := s.amqp.PublishSyncRequest(ctx, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync request",
			"user_id", userID, "error", err)
	}

	return r, nil
}

// ListReceipts returns the user's receipts, newest first.
func (s *ReceiptService) ListReceipts(ctx context.Context, userID string) ([]core.ReceiptRecord, error) {
	return s.store.ListReceipts(ctx, userID)
}

// Sync runs at most one export per user at a time. Concurrent callers for the
// same user share the in-flight run's result instead of starting another.
func (s *ReceiptService) Sync(ctx context.Context, userID string) (core.SyncResult, error) {
	v, err, shared := s.group.Do(userID, func() (any, error) {
		return s.syncOnce(ctx, userID)
	})
	if err != nil {
		return core.SyncResult{}, err
	}
	if shared {
		slog.InfoContext(ctx, "Joined in-flight sync", "user_id", userID)
	}
	return v.(core.SyncResult), nil
}

func (s *ReceiptService) syncOnce(ctx context.Context, userID string) (core.SyncResult, error) {
	records, err := s.store.ListReceipts(ctx, userID)
	if err != nil {
		return core.SyncResult{}, fmt.Errorf("list receipts: %w", err)
	}

	state, err := s.store.GetSyncState(ctx, userID)
	if err != nil {
		return core.SyncResult{}, fmt.Errorf("load sync state: %w", err)
	}

	result, err := s.sync.Sync(ctx, records, state)
	if err != nil {
		return core.SyncResult{}, err
	}

	// The rows are already appended at this point. A failed state write only
	// costs a wider fallback window next run, so it does not fail the sync.
	newState := core.SyncState{
		SpreadsheetID:     result.SpreadsheetID,
		LastSyncTimestamp: result.Timestamp,
	}
	if err := s.store.UpsertSyncState(ctx, userID, newState); err != nil {
		slog.ErrorContext(ctx, "Failed to persist sync state",
			"user_id", userID, "error", err)
	}

	return result, nil
}
