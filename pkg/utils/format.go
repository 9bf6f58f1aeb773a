// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"
)

// FormatUSD formats a dollar amount with the sign outside the currency
// symbol ("-$0.25", never "$-0.25").
func FormatUSD(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	result := fmt.Sprintf("$%.2f", amount)
	if negative {
		result = "-" + result
	}
	return result
}

// FormatPercent formats a percentage with an explicit sign for positives.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatVolume formats a share count with thousands grouping.
func FormatVolume(volume int64) string {
	return groupThousands(fmt.Sprintf("%d", volume))
}

// groupThousands inserts commas into an integer string, groups of three.
func groupThousands(s string) string {
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}

	n := len(s)
	if n > 3 {
		var parts []string
		for n > 3 {
			parts = append([]string{s[n-3:]}, parts...)
			s = s[:n-3]
			n = len(s)
		}
		parts = append([]string{s}, parts...)
		s = strings.Join(parts, ",")
	}

	if negative {
		s = "-" + s
	}
	return s
}
