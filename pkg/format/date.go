package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// DateStyle selects how a DateFormatter renders.
type DateStyle string

const (
	DateShort    DateStyle = "SHORT"
	DateMedium   DateStyle = "MEDIUM"
	DateLong     DateStyle = "LONG"
	DateFull     DateStyle = "FULL"
	DateRelative DateStyle = "RELATIVE"
)

// InvalidDate is returned for zero times and unparsable input.
const InvalidDate = "invalid date"

// relativeLimit is where RELATIVE falls back to MEDIUM.
const relativeLimit = 7 * 24 * time.Hour

var relativeMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: "a few seconds %s", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "1 minute %s", DivBy: time.Minute},
	{D: time.Hour, Format: "%d minutes %s", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "1 hour %s", DivBy: time.Hour},
	{D: 24 * time.Hour, Format: "%d hours %s", DivBy: time.Hour},
	{D: 48 * time.Hour, Format: "1 day %s", DivBy: 24 * time.Hour},
	{D: relativeLimit, Format: "%d days %s", DivBy: 24 * time.Hour},
}

// ParseDateStyle maps a user-supplied name to a style, defaulting to MEDIUM.
func ParseDateStyle(s string) DateStyle {
	switch DateStyle(strings.ToUpper(strings.TrimSpace(s))) {
	case DateShort:
		return DateShort
	case DateLong:
		return DateLong
	case DateFull:
		return DateFull
	case DateRelative:
		return DateRelative
	default:
		return DateMedium
	}
}

// DateFormatter renders timestamps in one of the DateStyle variants.
type DateFormatter struct {
	Style  DateStyle
	Locale Locale
	// Now is the reference time for RELATIVE. Defaults to time.Now.
	Now func() time.Time
}

// Format renders t. A zero time yields InvalidDate.
func (f DateFormatter) Format(t time.Time) string {
	if t.IsZero() {
		return InvalidDate
	}
	loc := f.Locale.orDefault()

	switch f.Style {
	case DateShort:
		if loc.spanish() {
			return t.Format("02/01/2006")
		}
		return t.Format("01/02/2006")
	case DateLong:
		if loc.spanish() {
			return fmt.Sprintf("%d de %s de %d", t.Day(), loc.months[t.Month()-1], t.Year())
		}
		return t.Format("January 2, 2006")
	case DateFull:
		if loc.spanish() {
			return fmt.Sprintf("%s, %d de %s de %d", loc.weekdays[t.Weekday()], t.Day(), loc.months[t.Month()-1], t.Year())
		}
		return t.Format("Monday, January 2, 2006")
	case DateRelative:
		return f.relative(t)
	default:
		return f.medium(t, loc)
	}
}

func (f DateFormatter) medium(t time.Time, loc Locale) string {
	if loc.spanish() {
		return fmt.Sprintf("%d %s %d", t.Day(), loc.shortMonths[t.Month()-1], t.Year())
	}
	return t.Format("Jan 2, 2006")
}

func (f DateFormatter) relative(t time.Time) string {
	now := time.Now()
	if f.Now != nil {
		now = f.Now()
	}
	diff := now.Sub(t)
	if diff < 0 {
		diff = -diff
	}
	if diff >= relativeLimit {
		return f.medium(t, f.Locale.orDefault())
	}
	return humanize.CustomRelTime(t, now, "ago", "from now", relativeMagnitudes)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatString parses an ISO-8601 timestamp or date and renders it.
func (f DateFormatter) FormatString(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return InvalidDate
	}
	return f.Format(t)
}

// ParseDate accepts the ISO-8601 shapes the API and stored documents use.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
