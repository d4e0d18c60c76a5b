package commission

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/commissiondesk/internal/backend"
)

func TestFormatAED(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "AED 0"},
		{"150000", "AED 150,000"},
		{"1200.50", "AED 1,200.5"},
		{"999", "AED 999"},
		{"-500", "AED -500"},
	}
	for _, tc := range tests {
		if got := FormatAED(decimal.RequireFromString(tc.in)); got != tc.want {
			t.Errorf("FormatAED(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatAmountAbsentIsZero(t *testing.T) {
	if got := FormatAmount(backend.Amount{}); got != "AED 0" {
		t.Fatalf("unexpected format: %q", got)
	}
}
