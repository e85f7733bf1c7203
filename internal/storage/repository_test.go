package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/yerko-henz/receipts-registry-sub000/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testReceipt(id string, createdAt time.Time) core.ReceiptRecord {
	return core.ReceiptRecord{
		ID:              id,
		TransactionDate: "2026-08-01",
		MerchantName:    "Corner Cafe",
		Total:           core.Money{Cents: 1250},
		ImageURL:        "https://img.example/" + id + ".jpg",
		CreatedAt:       createdAt,
	}
}

func TestSQLiteRepository_SaveAndListReceipts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.SaveReceipt(ctx, "u1", testReceipt("r-1", base)); err != nil {
		t.Fatalf("save r-1: %v", err)
	}
	if err := repo.SaveReceipt(ctx, "u1", testReceipt("r-2", base.Add(time.Hour))); err != nil {
		t.Fatalf("save r-2: %v", err)
	}
	if err := repo.SaveReceipt(ctx, "u2", testReceipt("r-3", base)); err != nil {
		t.Fatalf("save r-3: %v", err)
	}

	got, err := repo.ListReceipts(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("u1 has %d receipts, want 2", len(got))
	}
	// Newest first
	if got[0].ID != "r-2" || got[1].ID != "r-1" {
		t.Errorf("order = [%s %s], want [r-2 r-1]", got[0].ID, got[1].ID)
	}
	if !got[1].CreatedAt.Equal(base) {
		t.Errorf("created_at = %v, want %v", got[1].CreatedAt, base)
	}
	if got[1].Total.Cents != 1250 {
		t.Errorf("total cents = %d, want 1250", got[1].Total.Cents)
	}
}

func TestSQLiteRepository_ListReceipts_EmptyUser(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.ListReceipts(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d receipts, want 0", len(got))
	}
}

func TestSQLiteRepository_SaveReceipt_DuplicateID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	rec := testReceipt("r-1", time.Now().UTC())

	if err := repo.SaveReceipt(ctx, "u1", rec); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := repo.SaveReceipt(ctx, "u1", rec); err == nil {
		t.Error("expected primary key violation on duplicate id")
	}
}

func TestSQLiteRepository_SyncState(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Unknown user gets the zero state
	state, err := repo.GetSyncState(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if state != (core.SyncState{}) {
		t.Errorf("zero state expected, got %+v", state)
	}

	first := core.SyncState{SpreadsheetID: "sheet-a", LastSyncTimestamp: "2026-08-01T10:00:00Z"}
	if err := repo.UpsertSyncState(ctx, "u1", first); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.GetSyncState(ctx, "u1")
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if got != first {
		t.Errorf("state = %+v, want %+v", got, first)
	}

	second := core.SyncState{SpreadsheetID: "sheet-a", LastSyncTimestamp: "2026-08-02T10:00:00Z"}
	if err := repo.UpsertSyncState(ctx, "u1", second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, err = repo.GetSyncState(ctx, "u1")
	if err != nil {
		t.Fatalf("get after second upsert: %v", err)
	}
	if got != second {
		t.Errorf("state = %+v, want %+v", got, second)
	}
}

func TestSQLiteRepository_ListUsersWithReceipts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.SaveReceipt(ctx, "bob", testReceipt("r-1", now)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.SaveReceipt(ctx, "alice", testReceipt("r-2", now)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.SaveReceipt(ctx, "alice", testReceipt("r-3", now)); err != nil {
		t.Fatalf("save: %v", err)
	}

	users, err := repo.ListUsersWithReceipts(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 || users[0] != "alice" || users[1] != "bob" {
		t.Errorf("users = %v, want [alice bob]", users)
	}
}
