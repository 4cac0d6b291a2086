package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"fatture/internal/amqp"
	"fatture/internal/core"
	"fatture/internal/ledger"
	"fatture/internal/storage"
)

// InvoiceService orchestrates invoice mutations across SQLite and AMQP.
// Every write lands in SQLite first; the sync message to the mirror pipeline
// is best-effort and never fails the user-facing operation.
type InvoiceService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewInvoiceService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *InvoiceService {
	return &InvoiceService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// AddInvoice saves an invoice locally and publishes a sync message.
func (s *InvoiceService) AddInvoice(ctx context.Context, d ledger.InvoiceDraft) (core.Invoice, error) {
	inv, err := s.storage.Add(ctx, d)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("save invoice: %w", err)
	}

	// New rows start at version 1
	s.publishSync(ctx, inv.ID, 1)

	return inv, nil
}

// UpdateInvoice rewrites the draft fields of an invoice and queues a re-sync.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id string, d ledger.InvoiceDraft) (core.Invoice, error) {
	inv, err := s.storage.Update(ctx, id, d)
	if err != nil {
		return core.Invoice{}, err
	}
	s.publishSyncCurrent(ctx, inv.ID)
	return inv, nil
}

// MarkInvoicePaid records the payment date and queues a re-sync.
func (s *InvoiceService) MarkInvoicePaid(ctx context.Context, id string, paymentDate core.Date) (core.Invoice, error) {
	inv, err := s.storage.MarkPaid(ctx, id, paymentDate)
	if err != nil {
		return core.Invoice{}, err
	}
	s.publishSyncCurrent(ctx, inv.ID)
	return inv, nil
}

// DeleteInvoice deletes an invoice locally and publishes a delete message.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id string) error {
	if err := s.storage.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}

	if rowID, err := numericID(id); err == nil {
		s.publishDelete(ctx, rowID)
	}

	return nil
}

func (s *InvoiceService) publishSyncCurrent(ctx context.Context, id string) {
	rowID, err := numericID(id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to parse invoice ID for sync", "id", id, "error", err)
		return
	}
	_, version, err := s.storage.GetInvoice(ctx, rowID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load invoice version for sync", "id", id, "error", err)
		return
	}
	s.publishSync(ctx, id, version)
}

func (s *InvoiceService) publishSync(ctx context.Context, id string, version int64) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	rowID, err := numericID(id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to parse invoice ID for sync", "id", id, "error", err)
		return
	}
	if err := s.amqpClient.PublishInvoiceSync(ctx, rowID, version); err != nil {
		// Invoice is saved locally; the batch sweep picks it up later
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
	}
}

func (s *InvoiceService) publishDelete(ctx context.Context, id int64) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return
	}
	if err := s.amqpClient.PublishInvoiceDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", id, "error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *InvoiceService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close invoice service: %v", errs)
	}

	return nil
}

func numericID(id string) (int64, error) {
	rest, ok := strings.CutPrefix(id, "FT-")
	if !ok {
		return 0, fmt.Errorf("malformed invoice id %q", id)
	}
	return strconv.ParseInt(rest, 10, 64)
}
