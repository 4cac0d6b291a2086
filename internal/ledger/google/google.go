package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"fatture/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors the invoice collection into a Google Sheets spreadsheet.
// One row per invoice, keyed by the invoice ID in column A, so re-syncs
// update in place instead of appending duplicates.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	invoicesSheet string
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default "Fatture").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheet := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheet == "" {
		sheet = "Fatture"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		invoicesSheet: sheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// UpsertInvoice writes the invoice to its row, appending when the ID is not
// yet present. Returns the A1 reference of the written row.
func (c *Client) UpsertInvoice(ctx context.Context, inv core.Invoice) (string, error) {
	if err := inv.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row, err := c.findRow(ctx, inv.ID)
	if err != nil {
		return "", err
	}
	if row == 0 {
		// Append after the last occupied row
		rng := fmt.Sprintf("%s!A:A", c.invoicesSheet)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("get sheet dimensions for %s: %w", c.invoicesSheet, err)
		}
		row = len(resp.Values) + 1
	}

	paid := ""
	if inv.IsPaid() {
		paid = inv.PaymentDate.Format("2006-01-02")
	}

	dataRange := fmt.Sprintf("%s!A%d:F%d", c.invoicesSheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{{
		inv.ID,
		inv.CustomerName,
		inv.InvoiceDate.Format("2006-01-02"),
		inv.DueDate().Format("2006-01-02"),
		inv.Amount.Decimal(),
		paid,
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update row in sheet %s: %w", c.invoicesSheet, err)
	}

	return dataRange, nil
}

// DeleteInvoice clears the mirrored row for the given invoice ID. Unknown
// IDs are a no-op, matching the local delete semantics.
func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	if row == 0 {
		slog.InfoContext(ctx, "Invoice row not found in sheet, nothing to clear", "id", id)
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:F%d", c.invoicesSheet, row, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear row %s: %w", rng, err)
	}
	return nil
}

// findRow returns the 1-based row holding the invoice ID, or 0 when absent.
func (c *Client) findRow(ctx context.Context, id string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.invoicesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(fmt.Sprint(row[0])), strings.TrimSpace(id)) {
			return i + 1, nil
		}
	}
	return 0, nil
}
