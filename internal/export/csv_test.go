package export

import (
	"strings"
	"testing"

	"fatture/internal/core"
)

func TestWriteCSV(t *testing.T) {
	invoices := []core.Invoice{
		{
			ID:           "FT-1",
			CustomerName: "Alex Grim",
			Amount:       core.Money{Cents: 55600},
			InvoiceDate:  core.NewDate(2024, 1, 8),
			PaymentTerms: 45,
		},
		{
			ID:           "FT-2",
			CustomerName: "Rossi, Bianchi & C.",
			Amount:       core.Money{Cents: 12000},
			InvoiceDate:  core.NewDate(2024, 1, 15),
			PaymentTerms: 30,
			PaymentDate:  core.NewDate(2024, 1, 20),
		},
	}
	view := core.BuildView(invoices, core.ViewQuery{Status: core.StatusAll}, core.NewDate(2024, 2, 25))

	var sb strings.Builder
	if err := WriteCSV(&sb, view.Visible); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 rows:\n%s", len(lines), sb.String())
	}
	if lines[0] != "Invoice #,Customer,Date,Due Date,Amount,Status" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "FT-1,Alex Grim,2024-01-08,2024-02-22,556.00,Overdue" {
		t.Fatalf("row 1 = %q", lines[1])
	}
	// Comma in the customer name forces quoting
	if lines[2] != `FT-2,"Rossi, Bianchi & C.",2024-01-15,2024-02-14,120.00,Paid` {
		t.Fatalf("row 2 = %q", lines[2])
	}
}

func TestWriteCSVEmptySet(t *testing.T) {
	var sb strings.Builder
	if err := WriteCSV(&sb, nil); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if sb.String() != "Invoice #,Customer,Date,Due Date,Amount,Status\n" {
		t.Fatalf("empty export = %q", sb.String())
	}
}
