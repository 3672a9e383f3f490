package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceFormatter renders currency amounts with two decimals.
type PriceFormatter struct {
	Locale Locale
}

// Format renders v, e.g. 1500 -> "$1.500,00". Non-finite input renders as zero.
func (f PriceFormatter) Format(v float64) string {
	loc := f.Locale.orDefault()
	if !finite(v) {
		v = 0
	}
	sign := ""
	if decimal.NewFromFloat(v).Round(2).IsNegative() {
		sign = "-"
	}
	return sign + loc.Symbol + loc.group(v, 2)
}

// Parse reverses Format.
func (f PriceFormatter) Parse(s string) (float64, error) {
	loc := f.Locale.orDefault()
	raw := strings.TrimSpace(s)
	neg := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, loc.Symbol)
	raw = strings.ReplaceAll(raw, loc.Group, "")
	raw = strings.ReplaceAll(raw, loc.Decimal, ".")

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !finite(v) {
		return 0, fmt.Errorf("parse price %q: invalid amount", s)
	}
	if neg {
		v = -v
	}
	return v, nil
}

// Valid reports whether v is a usable price.
func (f PriceFormatter) Valid(v float64) bool {
	return finite(v) && v >= 0
}

// CompactPriceFormatter abbreviates large amounts with K and M suffixes.
type CompactPriceFormatter struct {
	Locale Locale
}

// Format renders 2500000 -> "$2.5M", 2000000 -> "$2M", 1500 -> "$1.5K", 950 -> "$950".
func (f CompactPriceFormatter) Format(v float64) string {
	loc := f.Locale.orDefault()
	if !finite(v) {
		v = 0
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = math.Abs(v)
	}

	// Units are picked after rounding so 999999 promotes to "$1M", not "$1000K".
	d := decimal.NewFromFloat(v)
	thousand := decimal.NewFromInt(1_000)
	if d.Round(0).LessThan(thousand) {
		return sign + loc.Symbol + loc.group(v, 0)
	}
	if k := d.Div(thousand).Round(1); k.LessThan(thousand) {
		return sign + loc.Symbol + k.String() + "K"
	}
	return sign + loc.Symbol + d.Div(decimal.NewFromInt(1_000_000)).Round(1).String() + "M"
}
