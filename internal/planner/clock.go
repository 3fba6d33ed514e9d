package planner

import "time"

// TimestampLayout is the canonical rendering of planner timestamps: UTC,
// millisecond precision, fixed width, so values sort lexicographically in
// time order across every strategy.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Clock abstracts wall-clock reads for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a value rendered by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// CurrentTimestampString reads c once and renders it in TimestampLayout.
func CurrentTimestampString(c Clock) string {
	return FormatTimestamp(c.Now())
}
