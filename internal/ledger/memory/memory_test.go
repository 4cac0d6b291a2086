package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fatture/internal/core"
	"fatture/internal/ledger"
)

func draft() ledger.InvoiceDraft {
	return ledger.InvoiceDraft{
		CustomerName: "Alex Grim",
		Amount:       core.Money{Cents: 55600},
		InvoiceDate:  core.NewDate(2024, 1, 8),
		PaymentTerms: 30,
	}
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	a, err := s.Add(ctx, draft())
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	b, err := s.Add(ctx, draft())
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if a.ID != "FT-1" || b.ID != "FT-2" {
		t.Fatalf("ids = %s, %s", a.ID, b.ID)
	}
}

func TestAddRejectsInvalidDraft(t *testing.T) {
	s := New()
	bad := draft()
	bad.Amount = core.Money{Cents: 0}
	if _, err := s.Add(context.Background(), bad); err == nil {
		t.Fatalf("expected validation error")
	}
	items, _ := s.List(context.Background())
	if len(items) != 0 {
		t.Fatalf("rejected draft must not be stored")
	}
}

func TestIDsNeverReusedAfterDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	a, _ := s.Add(ctx, draft())
	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	b, _ := s.Add(ctx, draft())
	if b.ID == a.ID {
		t.Fatalf("id %s was reused after delete", b.ID)
	}
}

func TestUpdatePreservesIDAndPayment(t *testing.T) {
	s := New()
	ctx := context.Background()
	a, _ := s.Add(ctx, draft())
	if _, err := s.MarkPaid(ctx, a.ID, core.NewDate(2024, 2, 1)); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	d := draft()
	d.CustomerName = "Mellisa Clarke"
	d.Amount = core.Money{Cents: 10000}
	got, err := s.Update(ctx, a.ID, d)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.ID != a.ID {
		t.Fatalf("update changed ID: %s", got.ID)
	}
	if got.CustomerName != "Mellisa Clarke" || got.Amount.Cents != 10000 {
		t.Fatalf("update did not apply draft: %+v", got)
	}
	if !got.IsPaid() || !got.PaymentDate.Equal(core.NewDate(2024, 2, 1).Time) {
		t.Fatalf("update lost payment date: %+v", got)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	s := New()
	if _, err := s.Update(context.Background(), "FT-99", draft()); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkPaidIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	a, _ := s.Add(ctx, draft())

	first, err := s.MarkPaid(ctx, a.ID, core.NewDate(2024, 2, 1))
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	// Second call re-sets the same state; the original date wins.
	second, err := s.MarkPaid(ctx, a.ID, core.NewDate(2024, 3, 15))
	if err != nil {
		t.Fatalf("mark paid again: %v", err)
	}
	if !second.PaymentDate.Equal(first.PaymentDate.Time) {
		t.Fatalf("payment date changed on repeat: %v -> %v", first.PaymentDate, second.PaymentDate)
	}
}

func TestDeleteUnknownIDIsNoop(t *testing.T) {
	s := New()
	if err := s.Delete(context.Background(), "FT-404"); err != nil {
		t.Fatalf("delete of unknown id must be a no-op, got %v", err)
	}
}

func TestPersistAndRehydrate(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := NewFromFile(dir)
	a, err := s.Add(ctx, draft())
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.MarkPaid(ctx, a.ID, core.NewDate(2024, 2, 1)); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	// A fresh store over the same directory sees the same collection and
	// keeps issuing fresh IDs.
	s2 := NewFromFile(dir)
	items, err := s2.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("rehydrated %d invoices, want 1", len(items))
	}
	got := items[0]
	if got.ID != a.ID || got.CustomerName != a.CustomerName || got.Amount != a.Amount {
		t.Fatalf("rehydrated invoice differs: %+v", got)
	}
	if !got.IsPaid() {
		t.Fatalf("payment date lost across restart")
	}
	b, _ := s2.Add(ctx, draft())
	if b.ID != "FT-2" {
		t.Fatalf("counter not restored, next id = %s", b.ID)
	}
}

func TestPersistFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := NewFromFile(dir)
	a, err := s.Add(ctx, draft())
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// Point persistence under a regular file so every write fails
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	s.path = filepath.Join(blocker, "sub", "invoices.json")

	if _, err := s.Add(ctx, draft()); err == nil {
		t.Fatal("add should surface the persist error")
	}
	items, _ := s.List(ctx)
	if len(items) != 1 {
		t.Fatalf("failed add left %d invoices, want 1", len(items))
	}

	d := draft()
	d.CustomerName = "Mellisa Clarke"
	if _, err := s.Update(ctx, a.ID, d); err == nil {
		t.Fatal("update should surface the persist error")
	}
	items, _ = s.List(ctx)
	if items[0].CustomerName != a.CustomerName {
		t.Fatalf("failed update left %q in memory", items[0].CustomerName)
	}

	if _, err := s.MarkPaid(ctx, a.ID, core.NewDate(2024, 2, 1)); err == nil {
		t.Fatal("mark paid should surface the persist error")
	}
	items, _ = s.List(ctx)
	if items[0].IsPaid() {
		t.Fatal("failed mark paid left the payment date set")
	}

	if err := s.Delete(ctx, a.ID); err == nil {
		t.Fatal("delete should surface the persist error")
	}
	items, _ = s.List(ctx)
	if len(items) != 1 {
		t.Fatalf("failed delete removed the invoice, %d left", len(items))
	}

	// With persistence working again the counter is still past the failed
	// add, so its ID is never reissued.
	s.path = filepath.Join(dir, "invoices.json")
	b, err := s.Add(ctx, draft())
	if err != nil {
		t.Fatalf("add after recovery: %v", err)
	}
	if b.ID != "FT-3" {
		t.Fatalf("next id = %s, want FT-3", b.ID)
	}
}

func TestListReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.Add(ctx, draft())
	items, _ := s.List(ctx)
	items[0].CustomerName = "mutated"
	fresh, _ := s.List(ctx)
	if fresh[0].CustomerName == "mutated" {
		t.Fatalf("List must return a copy")
	}
}
