package components

import (
	"strings"

	"github.com/dustin/go-humanize"
)

// Cost formats dollars with thousands separators and two decimals.
func Cost(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// Count formats an integer with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}

// Tokens formats a token count with an SI suffix, e.g. "1.2M".
func Tokens(n int64) string {
	return strings.ReplaceAll(humanize.SIWithDigits(float64(n), 1, ""), " ", "")
}
