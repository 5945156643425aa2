package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmountDue(t *testing.T) {
	cases := []struct {
		name    string
		total   string
		advance string
		want    string
	}{
		{"advance below total", "27200", "5000", "22200"},
		{"advance equals total", "27200", "27200", "0"},
		{"advance above total", "27200", "30000", "0"},
		{"paise remain", "27200.50", "27200", "0.5"},
		{"no advance", "1500", "0", "1500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			total := decimal.RequireFromString(tc.total)
			advance := decimal.RequireFromString(tc.advance)
			want := decimal.RequireFromString(tc.want)
			if got := AmountDue(total, advance); !got.Equal(want) {
				t.Fatalf("AmountDue(%s, %s) = %s, want %s", total, advance, got, want)
			}
			booking := AdvanceBooking{TotalAmount: total, AdvanceAmount: advance}
			if got := booking.AmountDue(); !got.Equal(want) {
				t.Fatalf("booking amount due %s, want %s", got, want)
			}
		})
	}
}
