package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"12", 1200, true},
		{"0.01", 1, true},
		{"12.345", 1234, true}, // rounds down
		{"12.346", 1235, true}, // rounds up
		{" 556.00 ", 55600, true},
		{"", 0, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"-5", 0, false},
		{"+5", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q: unexpected error %v", tc.in, err)
			}
			if got != tc.cents {
				t.Fatalf("%q: got %d cents, want %d", tc.in, got, tc.cents)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%q: expected error, got %d", tc.in, got)
		}
	}
}

func TestMoneyDecimal(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{55600, "556.00"},
		{1234, "12.34"},
		{5, "0.05"},
		{-1234, "-12.34"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).Decimal(); got != tc.want {
			t.Fatalf("Decimal(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
