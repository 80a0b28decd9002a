package clock

import "time"

// Layout is the textual form of a reading timestamp.
const Layout = "2006-01-02 15:04:05"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always reports the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// Func adapts a function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// Format renders t in local time with second resolution.
func Format(t time.Time) string {
	return t.Local().Format(Layout)
}

// Timestamp is Format(c.Now()).
func Timestamp(c Clock) string {
	return Format(c.Now())
}

// Parse reads a timestamp written by Format.
func Parse(s string) (time.Time, error) {
	return time.ParseInLocation(Layout, s, time.Local)
}
