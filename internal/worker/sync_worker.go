package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fatture/internal/amqp"
	"fatture/internal/core"
	"fatture/internal/ledger"
	"fatture/internal/storage"
)

// InvoiceMirror is the destination the worker copies invoices into.
type InvoiceMirror interface {
	UpsertInvoice(ctx context.Context, inv core.Invoice) (string, error)
	DeleteInvoice(ctx context.Context, id string) error
}

// SyncWorker mirrors invoices from SQLite to the spreadsheet. AMQP messages
// drive the fast path; ProcessPendingInvoices sweeps for anything missed.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	mirror    InvoiceMirror
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, mirror InvoiceMirror, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single invoice sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.InvoiceSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	inv, _, err := w.storage.GetInvoice(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			// Deleted between publish and consume; nothing to mirror
			slog.WarnContext(ctx, "Invoice gone before sync, skipping", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get invoice from storage: %w", err)
	}

	return w.mirrorInvoice(ctx, msg.ID, inv)
}

// HandleDeleteMessage processes a single invoice delete message from AMQP.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.InvoiceDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	id := fmt.Sprintf("FT-%d", msg.ID)
	if err := w.mirror.DeleteInvoice(ctx, id); err != nil {
		return fmt.Errorf("delete invoice from mirror: %w", err)
	}

	slog.InfoContext(ctx, "Deleted invoice from mirror", "id", id)
	return nil
}

// ProcessPendingInvoices mirrors any invoices that have not been synced yet.
// Backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingInvoices(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncInvoices(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending invoices: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending invoices", "count", len(pending))

	for _, p := range pending {
		inv, _, err := w.storage.GetInvoice(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get invoice", "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.mirrorInvoice(ctx, p.ID, inv); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror invoice", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck mirrors pending invoices at worker startup to recover
// from missed messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncInvoices(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending invoices for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending invoices found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending invoices on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		inv, _, err := w.storage.GetInvoice(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get invoice for startup sync",
				"id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			errorCount++
			continue
		}

		if err := w.mirrorInvoice(ctx, p.ID, inv); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror invoice during startup",
				"id", p.ID, "error", err)
			errorCount++
			continue
		}

		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) mirrorInvoice(ctx context.Context, id int64, inv core.Invoice) error {
	ref, err := w.mirror.UpsertInvoice(ctx, inv)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("upsert into mirror: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// The mirror write succeeded; the sweep will just re-upsert this row
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Mirrored invoice",
		"id", inv.ID,
		"sheet_ref", ref,
		"customer", inv.CustomerName,
		"amount_cents", inv.Amount.Cents)

	return nil
}
