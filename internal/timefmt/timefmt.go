// Package timefmt converts timestamps to and from the text stored in SQLite.
//
// Stored values are UTC with a fixed nine-digit fraction, so comparing two
// stored strings lexically gives the same answer as comparing the times.
package timefmt

import "time"

// Layout is the stored timestamp format.
const Layout = "2006-01-02T15:04:05.000000000Z"

// nowFunc is overridden in tests.
var nowFunc = time.Now

// Now returns the current time in UTC.
func Now() time.Time {
	return nowFunc().UTC()
}

// Format renders t in UTC using Layout.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// FormatOptional renders t, or returns nil for a nil time.
func FormatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := Format(*t)
	return &s
}

// Parse reads a stored timestamp. Any RFC 3339 value is accepted, with or
// without fractional seconds and with any offset. Malformed input yields the
// current time instead of an error so a single bad cell never fails a read.
func Parse(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Now()
	}
	return t.UTC()
}

// ParseOptional parses a nullable column.
func ParseOptional(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t := Parse(*s)
	return &t
}
