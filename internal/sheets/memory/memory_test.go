package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/yerko-henz/receipts-registry-sub000/internal/core"
)

func translate(key string) string { return key }

func TestExporter_FindOrCreate(t *testing.T) {
	e := New()
	ctx := context.Background()

	id1, isNew, err := e.FindOrCreate(ctx, "Receipts Registry")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isNew {
		t.Error("first call should create")
	}

	id2, isNew, err := e.FindOrCreate(ctx, "Receipts Registry")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if isNew {
		t.Error("second call should find the existing sheet")
	}
	if id1 != id2 {
		t.Errorf("ids differ: %q vs %q", id1, id2)
	}
	if e.Created != 1 {
		t.Errorf("created %d sheets, want 1", e.Created)
	}
}

func TestExporter_ReadColumnIncludesHeaderAndRows(t *testing.T) {
	e := New()
	ctx := context.Background()

	id, _, err := e.FindOrCreate(ctx, "t")
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	if err := e.WriteHeaders(ctx, id, core.ReceiptColumns, translate); err != nil {
		t.Fatalf("write headers: %v", err)
	}
	rec := core.ReceiptRecord{
		ID:              "r-1",
		TransactionDate: "2026-08-01",
		MerchantName:    "Cafe",
		Total:           core.Money{Cents: 100},
	}
	if err := e.Append(ctx, id, []core.ReceiptRecord{rec}); err != nil {
		t.Fatalf("append: %v", err)
	}

	cells, err := e.ReadColumn(ctx, id, "E")
	if err != nil {
		t.Fatalf("read column: %v", err)
	}
	if len(cells) != 2 || cells[0] != "column.id" || cells[1] != "r-1" {
		t.Errorf("cells = %v, want [column.id r-1]", cells)
	}
}

func TestExporter_FailureInjection(t *testing.T) {
	e := New()
	ctx := context.Background()

	id, _, err := e.FindOrCreate(ctx, "t")
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}

	e.ReadErr = errors.New("boom")
	if _, err := e.ReadColumn(ctx, id, "E"); err == nil {
		t.Error("expected injected read error")
	}

	e.AppendErr = errors.New("boom")
	rec := core.ReceiptRecord{ID: "r-1", Total: core.Money{Cents: 1}}
	if err := e.Append(ctx, id, []core.ReceiptRecord{rec}); err == nil {
		t.Error("expected injected append error")
	}
}

func TestExporter_UnknownSpreadsheet(t *testing.T) {
	e := New()
	if _, err := e.ReadColumn(context.Background(), "missing", "A"); err == nil {
		t.Error("expected error for unknown spreadsheet")
	}
}
