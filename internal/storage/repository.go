package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fatture/internal/core"
	"fatture/internal/ledger"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// SQLiteRepository persists the invoice collection in a local SQLite file.
// It implements the ledger ports with the same ID scheme as the memory
// backend: the public ID "FT-<n>" maps onto the numeric primary key, so IDs
// are never reused after deletion.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ledger.InvoiceWriter  = (*SQLiteRepository)(nil)
	_ ledger.InvoiceEditor  = (*SQLiteRepository)(nil)
	_ ledger.InvoiceDeleter = (*SQLiteRepository)(nil)
	_ ledger.InvoiceLister  = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Add implements ledger.InvoiceWriter
func (r *SQLiteRepository) Add(ctx context.Context, d ledger.InvoiceDraft) (core.Invoice, error) {
	inv := d.Invoice()
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}

	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO invoices (customer_name, amount_cents, invoice_date, payment_terms)
		 VALUES (?, ?, ?, ?) RETURNING id`,
		inv.CustomerName, inv.Amount.Cents, inv.InvoiceDate.Format(dateLayout), inv.PaymentTerms,
	).Scan(&id)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("insert invoice: %w", err)
	}
	inv.ID = publicID(id)

	slog.InfoContext(ctx, "Invoice saved to SQLite",
		"id", inv.ID,
		"customer", inv.CustomerName,
		"amount_cents", inv.Amount.Cents)

	return inv, nil
}

// Update implements ledger.InvoiceEditor. The payment date is untouched and
// the row is queued for re-sync.
func (r *SQLiteRepository) Update(ctx context.Context, id string, d ledger.InvoiceDraft) (core.Invoice, error) {
	inv := d.Invoice()
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	rowID, err := rowID(id)
	if err != nil {
		return core.Invoice{}, ledger.ErrNotFound
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET customer_name = ?, amount_cents = ?, invoice_date = ?, payment_terms = ?,
		 version = version + 1, sync_status = 'pending', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		inv.CustomerName, inv.Amount.Cents, inv.InvoiceDate.Format(dateLayout), inv.PaymentTerms, rowID)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Invoice{}, ledger.ErrNotFound
	}
	return r.get(ctx, rowID)
}

// MarkPaid implements ledger.InvoiceEditor. Already-paid invoices keep their
// original payment date.
func (r *SQLiteRepository) MarkPaid(ctx context.Context, id string, paymentDate core.Date) (core.Invoice, error) {
	if err := paymentDate.Validate(); err != nil {
		return core.Invoice{}, err
	}
	rowID, err := rowID(id)
	if err != nil {
		return core.Invoice{}, ledger.ErrNotFound
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET payment_date = ?, version = version + 1, sync_status = 'pending',
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND payment_date IS NULL`,
		paymentDate.Format(dateLayout), rowID)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("mark invoice paid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either unknown or already paid; the fetch below disambiguates.
		return r.get(ctx, rowID)
	}

	slog.InfoContext(ctx, "Invoice marked paid",
		"id", publicID(rowID),
		"payment_date", paymentDate.Format(dateLayout))

	return r.get(ctx, rowID)
}

// Delete implements ledger.InvoiceDeleter. Unknown IDs are a no-op.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	rowID, err := rowID(id)
	if err != nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, rowID); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

// List implements ledger.InvoiceLister in insertion order.
func (r *SQLiteRepository) List(ctx context.Context) ([]core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, customer_name, amount_cents, invoice_date, payment_terms, payment_date
		 FROM invoices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []core.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// GetInvoice returns one invoice plus its sync version by numeric row ID.
// Used by the sheet-mirror worker when processing sync messages.
func (r *SQLiteRepository) GetInvoice(ctx context.Context, id int64) (core.Invoice, int64, error) {
	var version int64
	row := r.db.QueryRowContext(ctx,
		`SELECT id, customer_name, amount_cents, invoice_date, payment_terms, payment_date, version
		 FROM invoices WHERE id = ?`, id)

	var (
		rowid       int64
		customer    string
		cents       int64
		invoiceDate string
		terms       int
		payment     sql.NullString
	)
	if err := row.Scan(&rowid, &customer, &cents, &invoiceDate, &terms, &payment, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Invoice{}, 0, ledger.ErrNotFound
		}
		return core.Invoice{}, 0, fmt.Errorf("get invoice: %w", err)
	}
	inv, err := buildInvoice(rowid, customer, cents, invoiceDate, terms, payment)
	if err != nil {
		return core.Invoice{}, 0, err
	}
	return inv, version, nil
}

// PendingSyncInvoice is the minimal row shape the sync sweep needs.
type PendingSyncInvoice struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncInvoices returns invoices not yet mirrored to the sheet.
// Backup path for lost AMQP messages.
func (r *SQLiteRepository) GetPendingSyncInvoices(ctx context.Context, limit int) ([]PendingSyncInvoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version, created_at FROM invoices
		 WHERE sync_status = 'pending' ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync invoices: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncInvoice
	for rows.Next() {
		var p PendingSyncInvoice
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync invoice: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced marks an invoice as successfully mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET sync_status = 'synced' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark invoice synced: %w", err)
	}
	slog.InfoContext(ctx, "Invoice marked as synced", "id", id)
	return nil
}

// MarkSyncError marks an invoice as having mirror errors.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark invoice sync error: %w", err)
	}
	slog.WarnContext(ctx, "Invoice marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) get(ctx context.Context, rowID int64) (core.Invoice, error) {
	inv, _, err := r.GetInvoice(ctx, rowID)
	return inv, err
}

func scanInvoice(rows *sql.Rows) (core.Invoice, error) {
	var (
		id          int64
		customer    string
		cents       int64
		invoiceDate string
		terms       int
		payment     sql.NullString
	)
	if err := rows.Scan(&id, &customer, &cents, &invoiceDate, &terms, &payment); err != nil {
		return core.Invoice{}, fmt.Errorf("scan invoice: %w", err)
	}
	return buildInvoice(id, customer, cents, invoiceDate, terms, payment)
}

func buildInvoice(id int64, customer string, cents int64, invoiceDate string, terms int, payment sql.NullString) (core.Invoice, error) {
	issued, err := time.Parse(dateLayout, invoiceDate)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("parse invoice date %q: %w", invoiceDate, err)
	}
	inv := core.Invoice{
		ID:           publicID(id),
		CustomerName: customer,
		Amount:       core.Money{Cents: cents},
		InvoiceDate:  core.DateOf(issued),
		PaymentTerms: terms,
	}
	if payment.Valid && payment.String != "" {
		paid, err := time.Parse(dateLayout, payment.String)
		if err != nil {
			return core.Invoice{}, fmt.Errorf("parse payment date %q: %w", payment.String, err)
		}
		inv.PaymentDate = core.DateOf(paid)
	}
	return inv, nil
}

func publicID(id int64) string {
	return "FT-" + strconv.FormatInt(id, 10)
}

func rowID(publicID string) (int64, error) {
	rest, ok := strings.CutPrefix(publicID, "FT-")
	if !ok {
		return 0, fmt.Errorf("malformed invoice id %q", publicID)
	}
	return strconv.ParseInt(rest, 10, 64)
}
