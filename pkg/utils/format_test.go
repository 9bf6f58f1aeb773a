package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{10.5, "$10.50"},
		{0, "$0.00"},
		{-0.25, "-$0.25"},
		{1234.567, "$1234.57"},
		{-1234.5, "-$1234.50"},
	}

	for _, tt := range tests {
		if got := FormatUSD(tt.amount); got != tt.want {
			t.Errorf("FormatUSD(%v) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

// Property: the minus sign always precedes the currency symbol, never
// follows it.
func TestProperty_FormatUSDSignPlacement(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("sign outside the dollar symbol", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatUSD(amount)
			if strings.Contains(formatted, "$-") {
				return false
			}
			if amount < 0 {
				return strings.HasPrefix(formatted, "-$")
			}
			return strings.HasPrefix(formatted, "$")
		},
		gen.Float64Range(-100000, 100000),
	))

	properties.TestingRun(t)
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{2.5, "+2.50%"},
		{-2.3, "-2.30%"},
		{0, "0.00%"},
	}

	for _, tt := range tests {
		if got := FormatPercent(tt.value); got != tt.want {
			t.Errorf("FormatPercent(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestFormatVolume(t *testing.T) {
	tests := []struct {
		volume int64
		want   string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{52164000, "52,164,000"},
		{1234567890, "1,234,567,890"},
	}

	for _, tt := range tests {
		if got := FormatVolume(tt.volume); got != tt.want {
			t.Errorf("FormatVolume(%d) = %q, want %q", tt.volume, got, tt.want)
		}
	}
}
