package util

import (
	"strconv"
	"time"
)

// ExchangeTZ is the US equities exchange timezone.
const ExchangeTZ = "America/New_York"

var exchangeLoc = mustLoadLocation(ExchangeTZ)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// tzdata missing; exchange math degrades to UTC rather than crashing
		return time.UTC
	}
	return loc
}

// ExchangeTime converts t to the exchange's local civil time.
func ExchangeTime(t time.Time) time.Time {
	return t.In(exchangeLoc)
}

// TradingDate returns the exchange-local calendar date containing t.
func TradingDate(t time.Time) time.Time {
	et := ExchangeTime(t)
	return time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, exchangeLoc)
}

// PriorCloseInstant returns "yesterday 16:00 exchange time" relative to t.
// The window it anchors deliberately spans the overnight and premarket
// sessions.
func PriorCloseInstant(t time.Time) time.Time {
	day := TradingDate(t).AddDate(0, 0, -1)
	return time.Date(day.Year(), day.Month(), day.Day(), 16, 0, 0, 0, exchangeLoc)
}

// MinuteBucket returns the HH:MM minute-of-day key for t in exchange time.
func MinuteBucket(t time.Time) string {
	return ExchangeTime(t).Format("15:04")
}

// SameTradingDate reports whether a and b fall on the same exchange-local day.
func SameTradingDate(a, b time.Time) bool {
	return TradingDate(a).Equal(TradingDate(b))
}

// ParseTime tries RFC3339, the providers' "2006-01-02 15:04:05" and
// "2006-01-02" layouts, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, exchangeLoc); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02", s, exchangeLoc); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}
