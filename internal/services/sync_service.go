package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yerko-henz/receipts-registry-sub000/internal/core"
	"github.com/yerko-henz/receipts-registry-sub000/internal/sheets"
)

// SyncService drives one export run against the remote spreadsheet: locate or
// create the sheet, write headers for a fresh sheet, drop records already
// present remotely, append the rest in one batch.
type SyncService struct {
	exporter  sheets.Exporter
	title     string
	columns   core.ColumnSpec
	translate sheets.Translate
}

func NewSyncService(exporter sheets.Exporter, title string, translate sheets.Translate) *SyncService {
	return &SyncService{
		exporter:  exporter,
		title:     title,
		columns:   core.ReceiptColumns,
		translate: translate,
	}
}

// Sync exports the given records and reports what happened. The caller owns
// persistence: it passes the last known SyncState in and stores the returned
// result only after Sync comes back without error.
//
// Errors from the spreadsheet service pass through unwrapped, so callers can
// match on auth.AuthenticationError and sheets.AppendError.
func (s *SyncService) Sync(ctx context.Context, records []core.ReceiptRecord, state core.SyncState) (core.SyncResult, error) {
	spreadsheetID, isNew, err := s.exporter.FindOrCreate(ctx, s.title)
	if err != nil {
		return core.SyncResult{}, err
	}

	if isNew {
		if err := s.exporter.WriteHeaders(ctx, spreadsheetID, s.columns, s.translate); err != nil {
			return core.SyncResult{}, fmt.Errorf("write headers: %w", err)
		}
	}

	toSync := s.resolve(ctx, spreadsheetID, isNew, records, state.LastSyncTimestamp)

	result := core.SyncResult{
		URL:           s.exporter.URL(spreadsheetID),
		SpreadsheetID: spreadsheetID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		SyncedCount:   len(toSync),
	}

	if len(toSync) == 0 {
		slog.InfoContext(ctx, "Nothing to sync", "spreadsheet_id", spreadsheetID)
		return result, nil
	}

	if err := s.exporter.Append(ctx, spreadsheetID, toSync); err != nil {
		return core.SyncResult{}, err
	}

	slog.InfoContext(ctx, "Sync completed",
		"spreadsheet_id", spreadsheetID,
		"synced", len(toSync),
		"skipped", len(records)-len(toSync))

	return result, nil
}

// resolve decides which records still need exporting. The primary source of
// truth is the remote ID column; when that read fails the run does not abort
// but falls back to the caller's last sync timestamp, and to exporting every
// record when no timestamp exists yet. The fallback can re-export rows, never
// lose them.
func (s *SyncService) resolve(ctx context.Context, spreadsheetID string, isNew bool, records []core.ReceiptRecord, lastSync string) []core.ReceiptRecord {
	if len(records) == 0 {
		return nil
	}
	if isNew {
		return records
	}

	cells, err := s.exporter.ReadColumn(ctx, spreadsheetID, s.columns.Letter(core.FieldID))
	if err != nil {
		slog.WarnContext(ctx, "Could not read remote ids, falling back to timestamp filter",
			"spreadsheet_id", spreadsheetID, "error", err)
		return filterByTimestamp(records, lastSync)
	}

	remote := make(map[string]struct{}, len(cells))
	for _, id := range cells {
		remote[id] = struct{}{}
	}

	out := make([]core.ReceiptRecord, 0, len(records))
	for _, r := range records {
		if _, ok := remote[r.ID]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

func filterByTimestamp(records []core.ReceiptRecord, lastSync string) []core.ReceiptRecord {
	if lastSync == "" {
		return records
	}
	cutoff, err := time.Parse(time.RFC3339, lastSync)
	if err != nil {
		return records
	}

	out := make([]core.ReceiptRecord, 0, len(records))
	for _, r := range records {
		if r.CreatedAt.After(cutoff) {
			out = append(out, r)
		}
	}
	return out
}
