package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fatture/internal/amqp"
	"fatture/internal/core"
	"fatture/internal/ledger"
	"fatture/internal/storage"
)

type fakeMirror struct {
	upserts []core.Invoice
	deletes []string
	fail    bool
}

func (m *fakeMirror) UpsertInvoice(_ context.Context, inv core.Invoice) (string, error) {
	if m.fail {
		return "", errors.New("mirror unavailable")
	}
	m.upserts = append(m.upserts, inv)
	return "Fatture!A2:F2", nil
}

func (m *fakeMirror) DeleteInvoice(_ context.Context, id string) error {
	if m.fail {
		return errors.New("mirror unavailable")
	}
	m.deletes = append(m.deletes, id)
	return nil
}

func testRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fatture.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func addInvoice(t *testing.T, repo *storage.SQLiteRepository) core.Invoice {
	t.Helper()
	inv, err := repo.Add(context.Background(), ledger.InvoiceDraft{
		CustomerName: "Alex Grim",
		Amount:       core.Money{Cents: 55600},
		InvoiceDate:  core.NewDate(2024, 1, 8),
		PaymentTerms: 30,
	})
	if err != nil {
		t.Fatalf("add invoice: %v", err)
	}
	return inv
}

func TestHandleSyncMessageMirrorsAndMarksSynced(t *testing.T) {
	repo := testRepo(t)
	mirror := &fakeMirror{}
	w := NewSyncWorker(repo, mirror, 10)
	ctx := context.Background()

	addInvoice(t, repo)

	if err := w.HandleSyncMessage(ctx, amqp.NewInvoiceSyncMessage(1, 1)); err != nil {
		t.Fatalf("handle sync message: %v", err)
	}
	if len(mirror.upserts) != 1 || mirror.upserts[0].ID != "FT-1" {
		t.Fatalf("mirror upserts = %+v", mirror.upserts)
	}

	// Row no longer pending after a successful mirror
	pending, err := repo.GetPendingSyncInvoices(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending invoices, got %d", len(pending))
	}
}

func TestHandleSyncMessageForMissingInvoice(t *testing.T) {
	repo := testRepo(t)
	mirror := &fakeMirror{}
	w := NewSyncWorker(repo, mirror, 10)

	// Invoice deleted between publish and consume: skip, do not requeue
	if err := w.HandleSyncMessage(context.Background(), amqp.NewInvoiceSyncMessage(404, 1)); err != nil {
		t.Fatalf("missing invoice should not error, got %v", err)
	}
	if len(mirror.upserts) != 0 {
		t.Fatalf("nothing should be mirrored, got %+v", mirror.upserts)
	}
}

func TestHandleDeleteMessage(t *testing.T) {
	repo := testRepo(t)
	mirror := &fakeMirror{}
	w := NewSyncWorker(repo, mirror, 10)

	if err := w.HandleDeleteMessage(context.Background(), amqp.NewInvoiceDeleteMessage(3)); err != nil {
		t.Fatalf("handle delete message: %v", err)
	}
	if len(mirror.deletes) != 1 || mirror.deletes[0] != "FT-3" {
		t.Fatalf("mirror deletes = %+v", mirror.deletes)
	}
}

func TestProcessPendingInvoicesSweep(t *testing.T) {
	repo := testRepo(t)
	mirror := &fakeMirror{}
	w := NewSyncWorker(repo, mirror, 10)
	ctx := context.Background()

	addInvoice(t, repo)
	addInvoice(t, repo)

	if err := w.ProcessPendingInvoices(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(mirror.upserts) != 2 {
		t.Fatalf("mirrored %d invoices, want 2", len(mirror.upserts))
	}

	// Second sweep finds nothing to do
	mirror.upserts = nil
	if err := w.ProcessPendingInvoices(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(mirror.upserts) != 0 {
		t.Fatalf("second sweep should mirror nothing, got %d", len(mirror.upserts))
	}
}

func TestMirrorFailureMarksSyncError(t *testing.T) {
	repo := testRepo(t)
	mirror := &fakeMirror{fail: true}
	w := NewSyncWorker(repo, mirror, 10)
	ctx := context.Background()

	addInvoice(t, repo)

	if err := w.HandleSyncMessage(ctx, amqp.NewInvoiceSyncMessage(1, 1)); err == nil {
		t.Fatalf("expected error from failing mirror")
	}

	// Row left out of the pending set so the sweep does not hot-loop on it
	pending, err := repo.GetPendingSyncInvoices(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("errored invoice should leave pending state, got %d", len(pending))
	}
}
