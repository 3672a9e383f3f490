package format

import (
	"github.com/dustin/go-humanize"
)

// NumberFormatter renders plain numbers with locale grouping.
type NumberFormatter struct {
	Locale   Locale
	Decimals int
}

// Format renders 1234567.891 -> "1.234.567,89" with two decimals. NaN and Inf render as "0".
func (f NumberFormatter) Format(v float64) string {
	loc := f.Locale.orDefault()
	if !finite(v) {
		v = 0
	}
	out := loc.group(v, f.Decimals)
	if v < 0 && out != loc.group(0, f.Decimals) {
		out = "-" + out
	}
	return out
}

// FormatCount renders an integer count, e.g. 12500 -> "12.500".
func (f NumberFormatter) FormatCount(n int) string {
	loc := f.Locale.orDefault()
	return humanize.FormatInteger(loc.pattern(0), n)
}
