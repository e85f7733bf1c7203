package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yerko-henz/receipts-registry-sub000/internal/core"
	"github.com/yerko-henz/receipts-registry-sub000/internal/i18n"
	"github.com/yerko-henz/receipts-registry-sub000/internal/sheets"
	"github.com/yerko-henz/receipts-registry-sub000/internal/sheets/memory"
)

const testTitle = "Receipts Registry"

func newTestSyncService(exp *memory.Exporter) *SyncService {
	return NewSyncService(exp, testTitle, i18n.Translator("en"))
}

func record(id string, createdAt time.Time) core.ReceiptRecord {
	return core.ReceiptRecord{
		ID:              id,
		TransactionDate: "2026-08-01",
		MerchantName:    "Corner Cafe",
		Total:           core.Money{Cents: 1250},
		CreatedAt:       createdAt,
	}
}

func TestSyncService_FirstSyncCreatesSheetAndExportsAll(t *testing.T) {
	exp := memory.New()
	svc := newTestSyncService(exp)
	now := time.Now().UTC()

	records := []core.ReceiptRecord{record("r-1", now), record("r-2", now)}
	result, err := svc.Sync(context.Background(), records, core.SyncState{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.SyncedCount != 2 {
		t.Errorf("SyncedCount = %d, want 2", result.SyncedCount)
	}
	if result.SpreadsheetID == "" || result.URL == "" {
		t.Errorf("result missing spreadsheet id or url: %+v", result)
	}
	if _, err := time.Parse(time.RFC3339, result.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", result.Timestamp, err)
	}

	sheet := exp.Get(testTitle)
	if sheet == nil {
		t.Fatal("spreadsheet was not created")
	}
	if len(sheet.Headers) == 0 || sheet.Headers[0] != "Date" {
		t.Errorf("headers = %v, want translated labels starting with Date", sheet.Headers)
	}
	if len(sheet.Rows) != 2 {
		t.Errorf("sheet has %d rows, want 2", len(sheet.Rows))
	}
}

func TestSyncService_SecondSyncIsIdempotent(t *testing.T) {
	exp := memory.New()
	svc := newTestSyncService(exp)
	now := time.Now().UTC()
	records := []core.ReceiptRecord{record("r-1", now), record("r-2", now)}

	first, err := svc.Sync(context.Background(), records, core.SyncState{})
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}

	state := core.SyncState{SpreadsheetID: first.SpreadsheetID, LastSyncTimestamp: first.Timestamp}
	second, err := svc.Sync(context.Background(), records, state)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}

	if second.SyncedCount != 0 {
		t.Errorf("second SyncedCount = %d, want 0", second.SyncedCount)
	}
	if second.SpreadsheetID != first.SpreadsheetID {
		t.Errorf("spreadsheet id changed between syncs: %s vs %s", first.SpreadsheetID, second.SpreadsheetID)
	}
	if exp.Created != 1 {
		t.Errorf("created %d spreadsheets, want 1", exp.Created)
	}
	if exp.HeaderWrites != 1 {
		t.Errorf("wrote headers %d times, want 1", exp.HeaderWrites)
	}
	if got := len(exp.Get(testTitle).Rows); got != 2 {
		t.Errorf("sheet has %d rows after second sync, want 2", got)
	}
}

func TestSyncService_ExportsOnlyMissingRecords(t *testing.T) {
	exp := memory.New()
	svc := newTestSyncService(exp)
	now := time.Now().UTC()

	if _, err := svc.Sync(context.Background(), []core.ReceiptRecord{record("r-1", now)}, core.SyncState{}); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	all := []core.ReceiptRecord{record("r-1", now), record("r-2", now), record("r-3", now)}
	result, err := svc.Sync(context.Background(), all, core.SyncState{})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}

	if result.SyncedCount != 2 {
		t.Errorf("SyncedCount = %d, want 2", result.SyncedCount)
	}
	if got := len(exp.Get(testTitle).Rows); got != 3 {
		t.Errorf("sheet has %d rows, want 3", got)
	}
}

func TestSyncService_ReadFailureFallsBackToTimestamp(t *testing.T) {
	exp := memory.New()
	svc := newTestSyncService(exp)
	cutoff := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	old := record("r-old", cutoff.Add(-time.Hour))
	fresh := record("r-new", cutoff.Add(time.Hour))

	// Seed the sheet so the second sync sees an existing spreadsheet
	if _, err := svc.Sync(context.Background(), []core.ReceiptRecord{old}, core.SyncState{}); err != nil {
		t.Fatalf("seed sync: %v", err)
	}

	exp.ReadErr = errors.New("read quota exceeded")
	state := core.SyncState{LastSyncTimestamp: cutoff.Format(time.RFC3339)}
	result, err := svc.Sync(context.Background(), []core.ReceiptRecord{old, fresh}, state)
	if err != nil {
		t.Fatalf("sync with read failure: %v", err)
	}

	if result.SyncedCount != 1 {
		t.Errorf("SyncedCount = %d, want 1 (only the record created after the cutoff)", result.SyncedCount)
	}
}

func TestSyncService_ReadFailureWithoutTimestampExportsAll(t *testing.T) {
	exp := memory.New()
	svc := newTestSyncService(exp)
	now := time.Now().UTC()
	records := []core.ReceiptRecord{record("r-1", now), record("r-2", now)}

	if _, err := svc.Sync(context.Background(), records, core.SyncState{}); err != nil {
		t.Fatalf("seed sync: %v", err)
	}

	// No timestamp to fall back on: completeness wins and everything is
	// re-exported, duplicates included.
	exp.ReadErr = errors.New("read quota exceeded")
	result, err := svc.Sync(context.Background(), records, core.SyncState{})
	if err != nil {
		t.Fatalf("sync with read failure: %v", err)
	}

	if result.SyncedCount != 2 {
		t.Errorf("SyncedCount = %d, want 2", result.SyncedCount)
	}
	if got := len(exp.Get(testTitle).Rows); got != 4 {
		t.Errorf("sheet has %d rows, want 4 (duplicates tolerated)", got)
	}
}

func TestSyncService_NothingToSyncSkipsAppend(t *testing.T) {
	exp := memory.New()
	svc := newTestSyncService(exp)

	result, err := svc.Sync(context.Background(), nil, core.SyncState{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SyncedCount != 0 {
		t.Errorf("SyncedCount = %d, want 0", result.SyncedCount)
	}
	if exp.Appends != 0 {
		t.Errorf("append was called %d times, want 0", exp.Appends)
	}
	if result.SpreadsheetID == "" {
		t.Error("empty store still gets a spreadsheet and result")
	}
}

func TestSyncService_AppendErrorPropagates(t *testing.T) {
	exp := memory.New()
	svc := newTestSyncService(exp)
	exp.AppendErr = &sheets.AppendError{Remote: "The caller does not have permission"}

	_, err := svc.Sync(context.Background(), []core.ReceiptRecord{record("r-1", time.Now())}, core.SyncState{})
	if !sheets.IsAppendError(err) {
		t.Fatalf("expected AppendError, got %v", err)
	}

	var ae *sheets.AppendError
	errors.As(err, &ae)
	if ae.Remote != "The caller does not have permission" {
		t.Errorf("remote message = %q, want it carried verbatim", ae.Remote)
	}
}

func TestSyncService_CreateFailureAborts(t *testing.T) {
	exp := memory.New()
	svc := newTestSyncService(exp)
	exp.CreateErr = errors.New("quota exceeded")

	_, err := svc.Sync(context.Background(), []core.ReceiptRecord{record("r-1", time.Now())}, core.SyncState{})
	if err == nil {
		t.Fatal("expected error when spreadsheet creation fails")
	}
}

func TestSyncService_SearchFailureDegradesToCreate(t *testing.T) {
	exp := memory.New()
	svc := newTestSyncService(exp)
	exp.SearchErr = errors.New("search backend down")

	result, err := svc.Sync(context.Background(), []core.ReceiptRecord{record("r-1", time.Now())}, core.SyncState{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SyncedCount != 1 {
		t.Errorf("SyncedCount = %d, want 1", result.SyncedCount)
	}
	if exp.Created != 1 {
		t.Errorf("created %d spreadsheets, want 1", exp.Created)
	}
}
