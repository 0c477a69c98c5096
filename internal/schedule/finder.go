package schedule

import (
	"context"
	"time"
)

// Busy is one persisted busy interval, as read back from the store.
type Busy struct {
	UserID int64
	Interval
}

// RangeReader is the slice of the activity store the Finder consumes:
// all busy intervals of the given users whose date falls in [from, to].
type RangeReader interface {
	QueryRange(ctx context.Context, userIDs []int64, from, to time.Time) ([]Busy, error)
}

// Finder computes the common free time of a set of users over a rolling
// multi-day horizon. It holds no mutable state; concurrent calls are
// independent.
type Finder struct {
	store RangeReader
	now   func() time.Time

	workStart Clock
	workEnd   Clock
}

type FinderOption func(*Finder)

// WithWorkday overrides the default 09:00-20:00 window.
func WithWorkday(start, end Clock) FinderOption {
	return func(f *Finder) {
		f.workStart = start
		f.workEnd = end
	}
}

// WithNow overrides the clock. Tests use this to pin "today".
func WithNow(now func() time.Time) FinderOption {
	return func(f *Finder) { f.now = now }
}

func NewFinder(store RangeReader, opts ...FinderOption) *Finder {
	f := &Finder{
		store:     store,
		now:       time.Now,
		workStart: DefaultWorkdayStart,
		workEnd:   DefaultWorkdayEnd,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Finder) Workday() (start, end Clock) { return f.workStart, f.workEnd }

// CommonFreeTime returns the free slots shared by all given users for
// today through today+days-1, in chronological order. A busy interval
// from any user in the set blocks that slot for the whole group.
//
// days <= 0 yields an empty result. An empty user set, or a set with no
// activities in the range, yields the full workday window for every day.
// Store errors propagate unchanged; there are no retries here.
func (f *Finder) CommonFreeTime(ctx context.Context, userIDs []int64, days int) ([]Interval, error) {
	if days <= 0 {
		return nil, nil
	}

	today := midnight(f.now())

	var rows []Busy
	if len(userIDs) > 0 {
		var err error
		rows, err = f.store.QueryRange(ctx, userIDs, today, today.AddDate(0, 0, days))
		if err != nil {
			return nil, err
		}
	}

	free := make([]Interval, 0, days)
	for offset := 0; offset < days; offset++ {
		win := Window{Day: today.AddDate(0, 0, offset), Start: f.workStart, End: f.workEnd}
		bounds := win.Bounds()

		var busy []Interval
		for _, row := range rows {
			if clipped, ok := row.Clip(bounds); ok {
				busy = append(busy, clipped)
			}
		}
		if len(busy) == 0 {
			free = append(free, bounds)
			continue
		}
		free = append(free, Gaps(Merge(busy), bounds)...)
	}
	return free, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
