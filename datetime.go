package monetdbe

import (
	"fmt"
	"strings"
	"time"
)

// The engine has no notion of time zones. Dates, times and timestamps are
// exchanged as wall-clock values; a time.Time bound as a parameter keeps
// the fields it shows in its own location and drops the location itself.
// Timestamps read from a result are returned in UTC.

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the wall-clock date of t.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String formats the date as yyyy-mm-dd.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Timestamp returns midnight of d in UTC.
func (d Date) Timestamp() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// ParseDate parses a yyyy-mm-dd date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Time is a time of day without a date, with nanosecond resolution.
type Time struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// TimeOf returns the wall-clock time of day of t.
func TimeOf(t time.Time) Time {
	return Time{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond()}
}

// String formats the time as hh:mm:ss with a fractional part when one is set.
func (t Time) String() string {
	s := fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	if t.Nanosecond != 0 {
		frac := strings.TrimRight(fmt.Sprintf("%09d", t.Nanosecond), "0")
		s += "." + frac
	}
	return s
}

// Microsecond returns the sub-second part in microseconds.
func (t Time) Microsecond() int {
	return t.Nanosecond / int(time.Microsecond)
}

// On returns t on date d in UTC.
func (t Time) On(d Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, t.Second, t.Nanosecond, time.UTC)
}

// ParseTime parses hh:mm:ss with an optional fraction.
func ParseTime(s string) (Time, error) {
	t, err := time.Parse("15:04:05.999999999", strings.TrimSpace(s))
	if err != nil {
		return Time{}, err
	}
	return TimeOf(t), nil
}

const timestampLayout = "2006-01-02 15:04:05.999999999"

// formatTimestamp renders the wall-clock fields of t without a zone.
func formatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

// parseTimestamp accepts the canonical form and RFC 3339. Any zone offset
// in the input is dropped.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(timestampLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return naive(t), nil
}

// naive keeps the wall-clock fields of t and reinterprets them in UTC.
func naive(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
