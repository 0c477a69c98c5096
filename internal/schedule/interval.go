package schedule

import (
	"fmt"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }

// Overlaps reports whether two half-open intervals share any instant.
// Touching intervals (iv.End == o.Start) do not overlap.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && iv.End.After(o.Start)
}

// Clip truncates iv to the given bounds. The second result is false when
// the interval lies entirely outside the bounds.
func (iv Interval) Clip(bounds Interval) (Interval, bool) {
	if !iv.Overlaps(bounds) {
		return Interval{}, false
	}
	out := iv
	if out.Start.Before(bounds.Start) {
		out.Start = bounds.Start
	}
	if out.End.After(bounds.End) {
		out.End = bounds.End
	}
	return out, true
}

// Clock is a wall-clock time of day (no date, no zone).
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// At anchors the clock on the calendar day of t, in t's location.
func (c Clock) At(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, t.Location())
}

// Before uses plain field comparison; equal clocks are not before.
func (c Clock) Before(o Clock) bool {
	if c.Hour != o.Hour {
		return c.Hour < o.Hour
	}
	return c.Minute < o.Minute
}

// Window is the span of one calendar day within which free and busy time
// is meaningful. Time outside it is neither free nor busy.
type Window struct {
	Day   time.Time // any instant on the day; only the date part matters
	Start Clock
	End   Clock
}

// Bounds returns the window as a concrete interval on its day.
func (w Window) Bounds() Interval {
	return Interval{Start: w.Start.At(w.Day), End: w.End.At(w.Day)}
}

// Default workday window, 09:00-20:00.
var (
	DefaultWorkdayStart = Clock{Hour: 9}
	DefaultWorkdayEnd   = Clock{Hour: 20}
)
