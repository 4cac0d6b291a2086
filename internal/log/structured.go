package log

import (
	"context"
)

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogInvoiceCreated logs successful invoice creation
func (sl *StructuredLogger) LogInvoiceCreated(ctx context.Context, id, customer string, amountCents int64) {
	fields := NewFields().
		WithInvoice(id, customer, amountCents).
		WithOperation(OpCreate).
		WithComponent(ComponentInvoice)

	sl.logger.InfoContext(ctx, "Invoice created successfully", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
