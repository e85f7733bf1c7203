package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yerko-henz/receipts-registry-sub000/internal/auth"
	"github.com/yerko-henz/receipts-registry-sub000/internal/core"
	ports "github.com/yerko-henz/receipts-registry-sub000/internal/sheets"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// Client talks to the Drive file index (search, ownership-scoped) and the
// Sheets value API. All HTTP goes through the auth.Transport funnel of the
// http.Client passed at construction.
type Client struct {
	sheets  *gsheet.Service
	drive   *gdrive.Service
	columns core.ColumnSpec
}

// Ensure interface conformance
var _ ports.Exporter = (*Client)(nil)

// New builds a Client on top of an authenticated HTTP client
// (see auth.Provider.Client).
func New(ctx context.Context, httpClient *http.Client) (*Client, error) {
	sheetsSvc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	driveSvc, err := gdrive.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &Client{
		sheets:  sheetsSvc,
		drive:   driveSvc,
		columns: core.ReceiptColumns,
	}, nil
}

// NewFromEnv wires a Client from the GOOGLE_OAUTH_* environment variables.
func NewFromEnv(ctx context.Context) (*Client, error) {
	provider, err := auth.NewProviderFromEnv()
	if err != nil {
		return nil, err
	}
	return New(ctx, provider.Client())
}

// FindOrCreate searches the file index for a non-trashed spreadsheet whose
// name equals title exactly and returns the first match. When none exists, or
// when the search itself fails, it creates a new spreadsheet with that title.
// Search failure is best-effort by design: it degrades to create rather than
// failing the sync over a read-only lookup.
func (c *Client) FindOrCreate(ctx context.Context, title string) (string, bool, error) {
	if c.sheets == nil || c.drive == nil {
		return "", false, errors.New("spreadsheet client not initialized")
	}

	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQueryTerm(title), spreadsheetMimeType)
	list, err := c.drive.Files.List().Q(query).Fields("files(id, name)").PageSize(10).Context(ctx).Do()
	if err != nil {
		slog.WarnContext(ctx, "Spreadsheet search failed, falling back to create",
			"title", title, "error", err)
	} else if len(list.Files) > 0 {
		return list.Files[0].Id, false, nil
	}

	created, err := c.sheets.Spreadsheets.Create(&gsheet.Spreadsheet{
		Properties: &gsheet.SpreadsheetProperties{Title: title},
	}).Context(ctx).Do()
	if err != nil {
		return "", false, fmt.Errorf("create spreadsheet %q: %w", title, err)
	}

	slog.InfoContext(ctx, "Created export spreadsheet",
		"title", title, "spreadsheet_id", created.SpreadsheetId)

	return created.SpreadsheetId, true, nil
}

// WriteHeaders appends the translated header labels as the first row. It is
// not idempotent; the orchestrator calls it only for a newly created sheet.
func (c *Client) WriteHeaders(ctx context.Context, spreadsheetID string, columns core.ColumnSpec, translate ports.Translate) error {
	row := make([]any, len(columns))
	for i, col := range columns {
		row[i] = translate(col.LabelKey)
	}

	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := c.sheets.Spreadsheets.Values.Append(spreadsheetID, "A1", vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	return nil
}

// ReadColumn returns the non-empty cells of one column, top to bottom.
func (c *Client) ReadColumn(ctx context.Context, spreadsheetID, column string) ([]string, error) {
	rng := fmt.Sprintf("%s:%s", column, column)
	resp, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, rng).
		MajorDimension("COLUMNS").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read column %s: %w", rng, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}

	out := make([]string, 0, len(resp.Values[0]))
	for _, v := range resp.Values[0] {
		s := strings.TrimSpace(fmt.Sprint(v))
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// Append writes all records in one batch call. There is no partial-row retry:
// the batch either lands or the caller gets an AppendError with the remote
// message verbatim.
func (c *Client) Append(ctx context.Context, spreadsheetID string, records []core.ReceiptRecord) error {
	if len(records) == 0 {
		return nil
	}

	values := make([][]any, 0, len(records))
	for _, rec := range records {
		row := c.columns.Row(rec)
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		values = append(values, cells)
	}

	vr := &gsheet.ValueRange{Values: values}
	_, err := c.sheets.Spreadsheets.Values.Append(spreadsheetID, "A1", vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		if auth.IsAuthenticationError(err) {
			return err
		}
		return &ports.AppendError{Remote: remoteMessage(err)}
	}

	slog.InfoContext(ctx, "Appended receipt rows",
		"spreadsheet_id", spreadsheetID, "count", len(records))

	return nil
}

// URL returns the user-facing spreadsheet address.
func (c *Client) URL(spreadsheetID string) string {
	return "https://docs.google.com/spreadsheets/d/" + spreadsheetID
}

// escapeQueryTerm escapes a literal for the file index query language.
func escapeQueryTerm(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func remoteMessage(err error) string {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
