package adapters

import (
	"context"

	"fatture/internal/core"
	"fatture/internal/ledger"
	"fatture/internal/services"
	"fatture/internal/storage"
)

// SQLiteAdapter binds SQLiteRepository and InvoiceService to the ledger
// ports. Reads go straight to the repository, mutations go through the
// service so sync messages get published.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.InvoiceService
}

var (
	_ ledger.InvoiceWriter  = (*SQLiteAdapter)(nil)
	_ ledger.InvoiceEditor  = (*SQLiteAdapter)(nil)
	_ ledger.InvoiceDeleter = (*SQLiteAdapter)(nil)
	_ ledger.InvoiceLister  = (*SQLiteAdapter)(nil)
)

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.InvoiceService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

// Add implements ledger.InvoiceWriter
func (a *SQLiteAdapter) Add(ctx context.Context, d ledger.InvoiceDraft) (core.Invoice, error) {
	return a.service.AddInvoice(ctx, d)
}

// Update implements ledger.InvoiceEditor
func (a *SQLiteAdapter) Update(ctx context.Context, id string, d ledger.InvoiceDraft) (core.Invoice, error) {
	return a.service.UpdateInvoice(ctx, id, d)
}

// MarkPaid implements ledger.InvoiceEditor
func (a *SQLiteAdapter) MarkPaid(ctx context.Context, id string, paymentDate core.Date) (core.Invoice, error) {
	return a.service.MarkInvoicePaid(ctx, id, paymentDate)
}

// Delete implements ledger.InvoiceDeleter
func (a *SQLiteAdapter) Delete(ctx context.Context, id string) error {
	return a.service.DeleteInvoice(ctx, id)
}

// List implements ledger.InvoiceLister
func (a *SQLiteAdapter) List(ctx context.Context) ([]core.Invoice, error) {
	return a.storage.List(ctx)
}
