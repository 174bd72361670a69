package models

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// FormatTime renders t as ISO-8601 text in UTC, the form the authoritative store exchanges.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime normalizes a date-like value to a UTC time.
// Strings without a zone are read as UTC.
func ParseTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case *time.Time:
		if x == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return x.UTC(), nil
	case string:
		t, err := dateparse.ParseIn(x, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse time %q: %w", x, err)
		}
		return t.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time value of type %T", v)
	}
}
