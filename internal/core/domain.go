package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusPending Status = "Pending"
	StatusOverdue Status = "Overdue"
	StatusPaid    Status = "Paid"
)

type (
	// Status is the derived lifecycle state of an invoice. It is never stored
	// as authoritative truth; Resolve recomputes it from dates on every read.
	Status string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Invoice struct {
		ID           string
		CustomerName string
		Amount       Money
		InvoiceDate  Date
		PaymentTerms int  // days from InvoiceDate until payment is due
		PaymentDate  Date // zero value means unpaid
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidTerms  = errors.New("invalid payment terms")
	ErrEmptyCustomer = errors.New("empty customer name")
)

// NewDate creates a new Date from year, month, day, normalized to midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an arbitrary time to its calendar day. All day arithmetic
// in this package assumes midnight-UTC dates; any time-of-day or zone skew
// would off-by-one the aging counts.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// AddDays returns the date n calendar days after d.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// DaysSince returns the whole-day count d - o. Both dates are midnight UTC,
// so the division is exact.
func (d Date) DaysSince(o Date) int {
	return int(d.Sub(o.Time) / (24 * time.Hour))
}

// IsEmpty reports whether the date is unset (used for optional payment dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// DueDate is derived, never stored: invoice date plus the payment terms.
func (inv Invoice) DueDate() Date {
	return inv.InvoiceDate.AddDays(inv.PaymentTerms)
}

// IsPaid reports whether a payment date has been recorded.
func (inv Invoice) IsPaid() bool {
	return !inv.PaymentDate.IsEmpty()
}

func (inv Invoice) Validate() error {
	if err := inv.InvoiceDate.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(inv.CustomerName)) == 0 {
		return ErrEmptyCustomer
	}
	if len(inv.CustomerName) > 200 {
		return errors.New("customer name too long (max 200 characters)")
	}
	if err := inv.Amount.Validate(); err != nil {
		return err
	}
	if inv.PaymentTerms < 0 {
		return ErrInvalidTerms
	}
	return nil
}
