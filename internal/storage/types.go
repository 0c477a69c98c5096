package storage

import (
	"fmt"
	"strings"
	"time"
)

// Config configures the SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// Activity is one persisted schedules row. Date and the two times keep
// their on-disk text forms (YYYY-MM-DD, HH:MM).
type Activity struct {
	ID     int64
	UserID int64
	Date   string
	Start  string
	End    string
	Label  string
}

func (a Activity) String() string {
	return fmt.Sprintf("%s %s-%s %s", a.Date, a.Start, a.End, a.Label)
}

// Entry is one row of a single user's day schedule, for display.
type Entry struct {
	Start string
	End   string
	Label string
}

// ConflictError rejects an insert whose candidate range overlaps
// existing activities for the same user and day. It carries the
// conflicting rows so the caller can report them.
type ConflictError struct {
	Conflicts []Activity
}

func (e *ConflictError) Error() string {
	labels := make([]string, 0, len(e.Conflicts))
	for _, a := range e.Conflicts {
		labels = append(labels, a.String())
	}
	return "activity overlaps existing: " + strings.Join(labels, "; ")
}

// NotFoundError reports a delete whose target does not exist.
type NotFoundError struct {
	UserID int64
	Label  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no activity %q for user %d", e.Label, e.UserID)
}
