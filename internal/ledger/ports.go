package ledger

import (
	"context"
	"errors"

	"fatture/internal/core"
)

// ErrNotFound is returned by edit operations when no invoice carries the
// requested ID. Delete is deliberately not covered: deleting an unknown ID
// is a no-op.
var ErrNotFound = errors.New("invoice not found")

// InvoiceDraft carries the user-editable fields of an invoice. IDs and
// payment state are owned by the backends.
type InvoiceDraft struct {
	CustomerName string
	Amount       core.Money
	InvoiceDate  core.Date
	PaymentTerms int
}

func (d InvoiceDraft) Invoice() core.Invoice {
	return core.Invoice{
		CustomerName: d.CustomerName,
		Amount:       d.Amount,
		InvoiceDate:  d.InvoiceDate,
		PaymentTerms: d.PaymentTerms,
	}
}

// Ports for outbound adapters. All mutation of the invoice collection funnels
// through these named operations; nothing writes fields ad hoc.
type (
	InvoiceWriter interface {
		// Add stores a new invoice and assigns its ID. IDs are never
		// reused within a session, even after deletes.
		Add(ctx context.Context, d InvoiceDraft) (core.Invoice, error)
	}

	InvoiceEditor interface {
		// Update replaces the draft fields of an existing invoice. The ID
		// and any recorded payment date are preserved.
		Update(ctx context.Context, id string, d InvoiceDraft) (core.Invoice, error)

		// MarkPaid records the payment date, collapsing the derived status
		// to Paid. Marking an already-paid invoice is idempotent: the
		// original payment date is kept.
		MarkPaid(ctx context.Context, id string, paymentDate core.Date) (core.Invoice, error)
	}

	InvoiceDeleter interface {
		// Delete removes the invoice. Unknown IDs are a no-op, not an error.
		Delete(ctx context.Context, id string) error
	}

	InvoiceLister interface {
		// List returns the full collection in insertion order.
		List(ctx context.Context) ([]core.Invoice, error)
	}
)
