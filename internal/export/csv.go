package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"fatture/internal/core"
)

var csvHeader = []string{"Invoice #", "Customer", "Date", "Due Date", "Amount", "Status"}

// WriteCSV writes the annotated invoices as CSV. Callers pass the visible
// set of a view, so the file reflects the active filter and search but
// ignores pagination. encoding/csv quotes customer names containing commas
// or quotes.
func WriteCSV(w io.Writer, invoices []core.AnnotatedInvoice) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, inv := range invoices {
		row := []string{
			inv.ID,
			inv.CustomerName,
			inv.InvoiceDate.Format("2006-01-02"),
			inv.Due.Format("2006-01-02"),
			inv.Amount.Decimal(),
			string(inv.Status),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for %s: %w", inv.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
