package sheets

import (
	"context"

	"github.com/yerko-henz/receipts-registry-sub000/internal/core"
)

// Translate resolves a column label key to its localized header text.
type Translate func(key string) string

// Ports for outbound spreadsheet adapters.
type (
	// SpreadsheetLocator finds a spreadsheet by exact title or creates one.
	SpreadsheetLocator interface {
		// FindOrCreate returns the spreadsheet id and whether it was newly
		// created in this call. Title matching is exact and case-sensitive.
		FindOrCreate(ctx context.Context, title string) (id string, isNew bool, err error)
	}

	// SchemaWriter writes the fixed header row into a newly created
	// spreadsheet. Not idempotent: callers must gate it on isNew.
	SchemaWriter interface {
		WriteHeaders(ctx context.Context, spreadsheetID string, columns core.ColumnSpec, translate Translate) error
	}

	// ColumnReader reads a whole column by its single-letter reference.
	ColumnReader interface {
		ReadColumn(ctx context.Context, spreadsheetID, column string) ([]string, error)
	}

	// RowAppender appends records as rows in one batch call.
	RowAppender interface {
		Append(ctx context.Context, spreadsheetID string, records []core.ReceiptRecord) error
	}
)

// Exporter is the full surface the sync orchestrator drives.
type Exporter interface {
	SpreadsheetLocator
	SchemaWriter
	ColumnReader
	RowAppender

	// URL returns the user-facing address of the spreadsheet.
	URL(spreadsheetID string) string
}
