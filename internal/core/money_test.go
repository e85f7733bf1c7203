package core

import (
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"plain decimal", "12.34", 1234, false},
		{"comma separator", "12,34", 1234, false},
		{"integer", "7", 700, false},
		{"one fractional digit", "7.5", 750, false},
		{"rounds half up", "12.345", 1235, false},
		{"rounds down below half", "12.344", 1234, false},
		{"leading dot", ".50", 50, false},
		{"whitespace trimmed", "  3.00  ", 300, false},
		{"empty", "", 0, true},
		{"zero", "0", 0, true},
		{"zero decimal", "0.00", 0, true},
		{"negative", "-5", 0, true},
		{"explicit plus", "+5", 0, true},
		{"letters", "abc", 0, true},
		{"two separators", "1.2.3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("expected ErrInvalidAmount, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoney_Decimal(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{100, "1.00"},
		{5, "0.05"},
		{50, "0.50"},
		{999999, "9999.99"},
	}

	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).Decimal(); got != tt.want {
			t.Errorf("Money{%d}.Decimal() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestParseDecimalToCents_RoundTrip(t *testing.T) {
	cents, err := ParseDecimalToCents("12.34")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := (Money{Cents: cents}).Decimal(); got != "12.34" {
		t.Errorf("round trip = %q, want 12.34", got)
	}
}
