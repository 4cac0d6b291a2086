package core

import (
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateDaysSince(t *testing.T) {
	cases := []struct {
		a, b Date
		days int
	}{
		{NewDate(2024, 2, 25), NewDate(2024, 2, 22), 3},
		{NewDate(2024, 2, 22), NewDate(2024, 2, 22), 0},
		{NewDate(2024, 2, 20), NewDate(2024, 2, 22), -2},
		{NewDate(2024, 3, 1), NewDate(2024, 2, 28), 2}, // leap year
		{NewDate(2025, 1, 1), NewDate(2024, 12, 31), 1},
	}
	for i, tc := range cases {
		if got := tc.a.DaysSince(tc.b); got != tc.days {
			t.Fatalf("case %d: DaysSince = %d, want %d", i, got, tc.days)
		}
	}
}

func TestDateOfNormalizesToMidnight(t *testing.T) {
	// A late-evening timestamp in a non-UTC zone must not shift the day count.
	loc := time.FixedZone("CET", 3600)
	d := DateOf(time.Date(2024, 2, 25, 23, 45, 0, 0, loc))
	if d.DaysSince(NewDate(2024, 2, 22)) != 3 {
		t.Fatalf("time-of-day skewed the day count: %v", d)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -100}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestInvoiceDueDate(t *testing.T) {
	inv := Invoice{InvoiceDate: NewDate(2024, 1, 8), PaymentTerms: 45}
	if got, want := inv.DueDate(), NewDate(2024, 2, 22); !got.Equal(want.Time) {
		t.Fatalf("DueDate = %v, want %v", got, want)
	}
}

func TestInvoiceValidate(t *testing.T) {
	good := Invoice{
		CustomerName: "Alex Grim",
		Amount:       Money{Cents: 55600},
		InvoiceDate:  NewDate(2024, 1, 8),
		PaymentTerms: 30,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Invoice{
		{CustomerName: "a", Amount: Money{Cents: 1}, PaymentTerms: 30},                                  // zero date
		{CustomerName: "  ", Amount: Money{Cents: 1}, InvoiceDate: NewDate(2024, 1, 8)},                 // blank name
		{CustomerName: "a", Amount: Money{Cents: 0}, InvoiceDate: NewDate(2024, 1, 8)},                  // zero amount
		{CustomerName: "a", Amount: Money{Cents: 1}, InvoiceDate: NewDate(2024, 1, 8), PaymentTerms: -7}, // negative terms
	}
	for i, inv := range bads {
		if err := inv.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
