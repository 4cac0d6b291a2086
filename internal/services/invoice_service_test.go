package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fatture/internal/core"
	"fatture/internal/ledger"
	"fatture/internal/storage"
)

func testService(t *testing.T) *InvoiceService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fatture.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	// Nil AMQP client: publishing is skipped, writes still succeed
	return &InvoiceService{storage: repo}
}

func draft() ledger.InvoiceDraft {
	return ledger.InvoiceDraft{
		CustomerName: "Alex Grim",
		Amount:       core.Money{Cents: 55600},
		InvoiceDate:  core.NewDate(2024, 1, 8),
		PaymentTerms: 30,
	}
}

func TestAddInvoiceWithoutBroker(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	inv, err := s.AddInvoice(ctx, draft())
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if inv.ID != "FT-1" {
		t.Fatalf("id = %s, want FT-1", inv.ID)
	}
}

func TestUpdateThenMarkPaid(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	inv, err := s.AddInvoice(ctx, draft())
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	d := draft()
	d.CustomerName = "Mellisa Clarke"
	updated, err := s.UpdateInvoice(ctx, inv.ID, d)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CustomerName != "Mellisa Clarke" {
		t.Fatalf("update not applied: %+v", updated)
	}

	paid, err := s.MarkInvoicePaid(ctx, inv.ID, core.NewDate(2024, 2, 1))
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if !paid.IsPaid() {
		t.Fatalf("invoice not marked paid: %+v", paid)
	}

	// Repeat keeps the original date
	again, err := s.MarkInvoicePaid(ctx, inv.ID, core.NewDate(2024, 3, 15))
	if err != nil {
		t.Fatalf("mark paid again: %v", err)
	}
	if !again.PaymentDate.Equal(paid.PaymentDate.Time) {
		t.Fatalf("payment date changed on repeat: %v -> %v", paid.PaymentDate, again.PaymentDate)
	}
}

func TestUpdateUnknownInvoice(t *testing.T) {
	s := testService(t)
	if _, err := s.UpdateInvoice(context.Background(), "FT-99", draft()); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteInvoiceIdempotent(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	inv, err := s.AddInvoice(ctx, draft())
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.DeleteInvoice(ctx, inv.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteInvoice(ctx, inv.ID); err != nil {
		t.Fatalf("second delete must be a no-op, got %v", err)
	}
	if err := s.DeleteInvoice(ctx, "not-an-id"); err != nil {
		t.Fatalf("delete of malformed id must be a no-op, got %v", err)
	}
}

func TestCloseWithNilComponents(t *testing.T) {
	s := &InvoiceService{}
	if err := s.Close(); err != nil {
		t.Fatalf("Close should not return error with nil components: %v", err)
	}
}
