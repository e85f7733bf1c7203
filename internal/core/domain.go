package core

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the wire format for transaction dates.
const DateLayout = "2006-01-02"

type (
	// Field names a ReceiptRecord attribute addressable by the column layout.
	Field string

	// ReceiptRecord is one exported row's source of truth. It is owned by the
	// receipt store; the sync engine treats it as read-only input.
	ReceiptRecord struct {
		ID              string
		TransactionDate string
		MerchantName    string
		Total           Money
		ImageURL        string // optional
		CreatedAt       time.Time
	}

	Money struct {
		Cents int64
	}

	// Column pairs a translatable header label with the record field written
	// under it.
	Column struct {
		LabelKey string
		Field    Field
	}

	// ColumnSpec is the ordered column layout of an export spreadsheet. The
	// order must never change once a spreadsheet exists: dedup reads the ID
	// column back by its fixed index.
	ColumnSpec []Column

	// SyncState is the per-user metadata persisted by the caller after every
	// successful sync.
	SyncState struct {
		SpreadsheetID     string
		LastSyncTimestamp string // RFC3339, empty before the first sync
	}

	// SyncResult is the value object returned once per orchestrated sync call.
	SyncResult struct {
		URL           string
		SpreadsheetID string
		Timestamp     string // RFC3339
		SyncedCount   int
	}
)

const (
	FieldTransactionDate Field = "transactionDate"
	FieldMerchantName    Field = "merchantName"
	FieldTotalAmount     Field = "totalAmount"
	FieldImageURL        Field = "imageUrl"
	FieldID              Field = "id"
)

// ReceiptColumns is the fixed export layout: date, merchant, total, link, id.
var ReceiptColumns = ColumnSpec{
	{LabelKey: "column.date", Field: FieldTransactionDate},
	{LabelKey: "column.merchant", Field: FieldMerchantName},
	{LabelKey: "column.total", Field: FieldTotalAmount},
	{LabelKey: "column.link", Field: FieldImageURL},
	{LabelKey: "column.id", Field: FieldID},
}

var (
	ErrEmptyID         = errors.New("empty receipt id")
	ErrInvalidDate     = errors.New("invalid transaction date")
	ErrEmptyMerchant   = errors.New("empty merchant name")
	ErrMerchantTooLong = errors.New("merchant name too long (max 200 characters)")
	ErrInvalidAmount   = errors.New("invalid amount")
)

func (r ReceiptRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyID
	}
	if _, err := time.Parse(DateLayout, r.TransactionDate); err != nil {
		return ErrInvalidDate
	}
	if strings.TrimSpace(r.MerchantName) == "" {
		return ErrEmptyMerchant
	}
	if len(r.MerchantName) > 200 {
		return ErrMerchantTooLong
	}
	if err := r.Total.Validate(); err != nil {
		return err
	}
	return nil
}

// Value returns the spreadsheet cell value for the given field. Missing
// optional fields become the empty string.
func (r ReceiptRecord) Value(f Field) string {
	switch f {
	case FieldTransactionDate:
		return r.TransactionDate
	case FieldMerchantName:
		return r.MerchantName
	case FieldTotalAmount:
		return r.Total.Decimal()
	case FieldImageURL:
		return r.ImageURL
	case FieldID:
		return r.ID
	}
	return ""
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IndexOf returns the position of the field in the layout, or -1.
func (cs ColumnSpec) IndexOf(f Field) int {
	for i, c := range cs {
		if c.Field == f {
			return i
		}
	}
	return -1
}

// Letter returns the single-letter column reference for the field ("A".."Z"),
// or the empty string when the field is not part of the layout.
func (cs ColumnSpec) Letter(f Field) string {
	i := cs.IndexOf(f)
	if i < 0 || i > 25 {
		return ""
	}
	return string(rune('A' + i))
}

// Row maps a record to an ordered row of cell values in layout order.
func (cs ColumnSpec) Row(r ReceiptRecord) []string {
	row := make([]string, len(cs))
	for i, c := range cs {
		row[i] = r.Value(c.Field)
	}
	return row
}
