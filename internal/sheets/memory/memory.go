// Package memory is an in-process Exporter used by tests and local runs
// without remote credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/yerko-henz/receipts-registry-sub000/internal/core"
	ports "github.com/yerko-henz/receipts-registry-sub000/internal/sheets"
)

// Spreadsheet holds one fake sheet's state.
type Spreadsheet struct {
	ID      string
	Title   string
	Headers []string
	Rows    [][]string
}

// Exporter implements the full sheets.Exporter surface in memory. The error
// fields inject failures per operation so orchestrator fallbacks can be
// exercised without a network.
type Exporter struct {
	mu      sync.Mutex
	byTitle map[string]*Spreadsheet
	byID    map[string]*Spreadsheet
	nextID  int

	// SearchErr makes the title lookup fail; like the real adapter, the
	// lookup failure degrades to create instead of failing the call.
	SearchErr error
	CreateErr error
	ReadErr   error
	AppendErr error

	Created      int
	HeaderWrites int
	Appends      int
}

var _ ports.Exporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{
		byTitle: make(map[string]*Spreadsheet),
		byID:    make(map[string]*Spreadsheet),
	}
}

func (e *Exporter) FindOrCreate(_ context.Context, title string) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.SearchErr == nil {
		if s, ok := e.byTitle[title]; ok {
			return s.ID, false, nil
		}
	}

	if e.CreateErr != nil {
		return "", false, e.CreateErr
	}

	e.nextID++
	s := &Spreadsheet{
		ID:    fmt.Sprintf("sheet-%d", e.nextID),
		Title: title,
	}
	e.byTitle[title] = s
	e.byID[s.ID] = s
	e.Created++
	return s.ID, true, nil
}

func (e *Exporter) WriteHeaders(_ context.Context, spreadsheetID string, columns core.ColumnSpec, translate ports.Translate) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.byID[spreadsheetID]
	if !ok {
		return fmt.Errorf("unknown spreadsheet %q", spreadsheetID)
	}

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = translate(col.LabelKey)
	}
	s.Headers = headers
	e.HeaderWrites++
	return nil
}

func (e *Exporter) ReadColumn(_ context.Context, spreadsheetID, column string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ReadErr != nil {
		return nil, e.ReadErr
	}

	s, ok := e.byID[spreadsheetID]
	if !ok {
		return nil, fmt.Errorf("unknown spreadsheet %q", spreadsheetID)
	}
	if len(column) != 1 || column[0] < 'A' || column[0] > 'Z' {
		return nil, fmt.Errorf("invalid column reference %q", column)
	}
	idx := int(column[0] - 'A')

	var out []string
	if idx < len(s.Headers) && s.Headers[idx] != "" {
		out = append(out, s.Headers[idx])
	}
	for _, row := range s.Rows {
		if idx < len(row) && row[idx] != "" {
			out = append(out, row[idx])
		}
	}
	return out, nil
}

func (e *Exporter) Append(_ context.Context, spreadsheetID string, records []core.ReceiptRecord) error {
	if len(records) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.AppendErr != nil {
		return e.AppendErr
	}

	s, ok := e.byID[spreadsheetID]
	if !ok {
		return fmt.Errorf("unknown spreadsheet %q", spreadsheetID)
	}
	for _, rec := range records {
		s.Rows = append(s.Rows, core.ReceiptColumns.Row(rec))
	}
	e.Appends++
	return nil
}

func (e *Exporter) URL(spreadsheetID string) string {
	return "memory://spreadsheet/" + spreadsheetID
}

// Get returns the fake sheet stored under title, or nil.
func (e *Exporter) Get(title string) *Spreadsheet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.byTitle[title]
}

// GetByID returns the fake sheet stored under id, or nil.
func (e *Exporter) GetByID(id string) *Spreadsheet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.byID[id]
}
