package bybit

import (
	"strconv"
	"time"
)

// parseFloat64 parses a Bybit numeric-as-string field, defaulting to 0 on
// a malformed or empty value rather than failing the whole response.
func parseFloat64(s string) float64 {
	if s == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// parseInt64 parses a Bybit integer-as-string field the same way.
func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	i, _ := strconv.ParseInt(s, 10, 64)
	return i
}

// parseTimestamp converts a millisecond-epoch string into time.Time.
func parseTimestamp(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	msec, _ := strconv.ParseInt(ts, 10, 64)
	return time.UnixMilli(msec)
}
