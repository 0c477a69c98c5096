package telegram

import (
	"schedbot/internal/schedule"
	"schedbot/internal/storage"
	"schedbot/pkg/tgui"
)

const (
	stampLayout = "02.01.2006 15:04"
	clockLayout = "15:04"
)

// RenderFreeTime renders free slots with full start datetimes so
// multi-day answers stay unambiguous, plus a derived duration in hours.
// Exported because the digest service posts the same report.
func RenderFreeTime(free []schedule.Interval) tgui.H {
	if len(free) == 0 {
		return tgui.Esc("No free slots in the requested period.")
	}
	parts := make([]tgui.H, 0, len(free)+1)
	parts = append(parts, tgui.B("Free slots"))
	for i, iv := range free {
		hours := iv.Duration().Hours()
		parts = append(parts, tgui.F("%d. %s – %s (%.1f h, %s)",
			i+1,
			iv.Start.Format(stampLayout),
			iv.End.Format(clockLayout),
			hours,
			iv.Start.Weekday()))
	}
	return tgui.Lines(parts...)
}

func renderFreeTime(free []schedule.Interval) tgui.H { return RenderFreeTime(free) }

func renderDay(date string, entries []storage.Entry) tgui.H {
	if len(entries) == 0 {
		return tgui.F("Nothing planned on %s.", date)
	}
	parts := make([]tgui.H, 0, len(entries)+1)
	parts = append(parts, tgui.B("Schedule for "+date))
	for _, e := range entries {
		parts = append(parts, tgui.F("%s – %s  %s", e.Start, e.End, e.Label))
	}
	return tgui.Lines(parts...)
}

func renderAdded(a storage.Activity) tgui.H {
	return tgui.Lines(
		tgui.B("Activity added"),
		tgui.F("Date: %s", a.Date),
		tgui.F("Time: %s – %s", a.Start, a.End),
		tgui.F("Name: %s", a.Label),
	)
}

func renderConflicts(err *storage.ConflictError) tgui.H {
	parts := make([]tgui.H, 0, len(err.Conflicts)+1)
	parts = append(parts, tgui.B("Time overlaps existing activities:"))
	for _, a := range err.Conflicts {
		parts = append(parts, tgui.H("• ")+tgui.F("%s  %s–%s  %s", a.Date, a.Start, a.End, a.Label))
	}
	return tgui.Lines(parts...)
}
