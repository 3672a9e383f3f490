// Package format turns raw values into display strings. Every formatter is
// stateless and degrades to a fixed fallback string on malformed input.
package format

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Locale holds the separators and names used when rendering values.
type Locale struct {
	Code    string
	Symbol  string
	Group   string
	Decimal string

	months      [12]string
	shortMonths [12]string
	weekdays    [7]string
}

var (
	// ESAR is the default locale (Argentina).
	ESAR = Locale{
		Code:    "es-AR",
		Symbol:  "$",
		Group:   ".",
		Decimal: ",",
		months: [12]string{
			"enero", "febrero", "marzo", "abril", "mayo", "junio",
			"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
		},
		shortMonths: [12]string{
			"ene", "feb", "mar", "abr", "may", "jun",
			"jul", "ago", "sept", "oct", "nov", "dic",
		},
		weekdays: [7]string{
			"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado",
		},
	}

	// ENUS renders with US separators and Go's English calendar names.
	ENUS = Locale{
		Code:    "en-US",
		Symbol:  "$",
		Group:   ",",
		Decimal: ".",
	}
)

// LookupLocale returns the locale for code, falling back to es-AR.
func LookupLocale(code string) Locale {
	switch strings.ToLower(code) {
	case "en-us", "en":
		return ENUS
	default:
		return ESAR
	}
}

func (l Locale) orDefault() Locale {
	if l.Code == "" {
		return ESAR
	}
	return l
}

func (l Locale) spanish() bool {
	return l.months[0] != ""
}

func clampDecimals(decimals int) int {
	return max(0, min(decimals, 9))
}

// pattern builds a go-humanize directive such as "#.###,##".
func (l Locale) pattern(decimals int) string {
	return "#" + l.Group + "###" + l.Decimal + strings.Repeat("#", clampDecimals(decimals))
}

// group renders |v| with grouping and a fixed number of decimals. Digits come
// from decimal so magnitudes past int64 keep every place.
func (l Locale) group(v float64, decimals int) string {
	decimals = clampDecimals(decimals)
	fixed := decimal.NewFromFloat(math.Abs(v)).StringFixed(int32(decimals))
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(l.Group)
		}
		b.WriteRune(digit)
	}
	if decimals > 0 {
		b.WriteString(l.Decimal)
		b.WriteString(frac)
	}
	return b.String()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
