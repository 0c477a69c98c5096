package schedule

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError marks caller input that was rejected before touching
// the store: malformed date/time literals or an inverted range. It is
// always recoverable; callers report it and carry on.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

const (
	// DateLayout is the persisted calendar-day form (exactly 10 chars).
	DateLayout = "2006-01-02"
	// ClockLayout is the persisted time-of-day form, 24-hour.
	ClockLayout = "15:04"
)

// Keywords are the relative date words accepted next to literal dates.
// The words are configurable so a deployment can localize them.
type Keywords struct {
	Today      string
	Tomorrow   string
	Overmorrow string
}

func DefaultKeywords() Keywords {
	return Keywords{Today: "today", Tomorrow: "tomorrow", Overmorrow: "overmorrow"}
}

// ParseDate resolves raw to a canonical YYYY-MM-DD string. It accepts a
// literal date of exactly 10 characters or one of the three relative
// keywords, resolved against now's calendar day.
func (kw Keywords) ParseDate(raw string, now time.Time) (string, error) {
	day := midnight(now)
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case strings.ToLower(kw.Today):
		return day.Format(DateLayout), nil
	case strings.ToLower(kw.Tomorrow):
		return day.AddDate(0, 0, 1).Format(DateLayout), nil
	case strings.ToLower(kw.Overmorrow):
		return day.AddDate(0, 0, 2).Format(DateLayout), nil
	}

	s := strings.TrimSpace(raw)
	if len(s) != len(DateLayout) {
		return "", Invalidf("bad date %q: want YYYY-MM-DD or a relative day word", raw)
	}
	t, err := time.ParseInLocation(DateLayout, s, now.Location())
	if err != nil {
		return "", Invalidf("bad date %q: want YYYY-MM-DD or a relative day word", raw)
	}
	return t.Format(DateLayout), nil
}

// ParseClock parses an HH:MM 24-hour literal into a Clock.
func ParseClock(raw string) (Clock, error) {
	s := strings.TrimSpace(raw)
	if len(s) != len(ClockLayout) {
		return Clock{}, Invalidf("bad time %q: want HH:MM", raw)
	}
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return Clock{}, Invalidf("bad time %q: want HH:MM", raw)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}
