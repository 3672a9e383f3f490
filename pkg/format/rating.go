package format

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	starFull  = "★"
	starHalf  = "⯨"
	starEmpty = "☆"
)

// RatingFormatter renders a score out of Max, optionally as star glyphs.
type RatingFormatter struct {
	Max    int
	Stars  bool
	Locale Locale
}

func (f RatingFormatter) max() int {
	if f.Max <= 0 {
		return 5
	}
	return f.Max
}

// Clamp limits v to [0, Max]. NaN becomes 0.
func (f RatingFormatter) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(v, float64(f.max())))
}

// Format renders "4,5" (or "★★★★⯨" with Stars set).
func (f RatingFormatter) Format(v float64) string {
	v = f.Clamp(v)
	if f.Stars {
		return f.StarString(v)
	}
	loc := f.Locale.orDefault()
	return strings.Replace(decimal.NewFromFloat(v).StringFixed(1), ".", loc.Decimal, 1)
}

// StarString rounds to the nearest half and renders full, half and empty stars.
func (f RatingFormatter) StarString(v float64) string {
	v = f.Clamp(v)
	rounded := math.Round(v*2) / 2
	full := int(rounded)
	half := 0
	if rounded-float64(full) >= 0.5 {
		half = 1
	}
	empty := f.max() - full - half

	return strings.Repeat(starFull, full) + strings.Repeat(starHalf, half) + strings.Repeat(starEmpty, empty)
}
