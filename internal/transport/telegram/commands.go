package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"schedbot/internal/schedule"
	"schedbot/internal/storage"
	logx "schedbot/pkg/logx"
	"schedbot/pkg/tgui"
)

// Handlers owns the bot command surface. It is a thin caller layer:
// parsing, store/finder calls, formatting. No scheduling math here.
type Handlers struct {
	store  *storage.Store
	finder *schedule.Finder
	log    logx.Logger

	keywords schedule.Keywords
	horizon  int // default /find_free_time span, days
	now      func() time.Time
}

type HandlersConfig struct {
	Keywords    schedule.Keywords
	HorizonDays int
}

func NewHandlers(store *storage.Store, finder *schedule.Finder, cfg HandlersConfig, log logx.Logger) *Handlers {
	kw := cfg.Keywords
	if kw == (schedule.Keywords{}) {
		kw = schedule.DefaultKeywords()
	}
	horizon := cfg.HorizonDays
	if horizon <= 0 {
		horizon = 7
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handlers{
		store:    store,
		finder:   finder,
		log:      log,
		keywords: kw,
		horizon:  horizon,
		now:      time.Now,
	}
}

func (h *Handlers) Register(a *Adapter) {
	a.Handle("/schedule_add", h.cmdScheduleAdd)
	a.Handle("/schedule", h.cmdSchedule)
	a.Handle("/schedule_delete", h.cmdScheduleDelete)
	a.Handle("/find_free_time", h.cmdFindFreeTime)
	a.Handle("/add_me", h.cmdAddMe)
}

// /schedule_add <date> <start> <end> <label...>
func (h *Handlers) cmdScheduleAdd(ctx context.Context, c tele.Context) error {
	args := strings.SplitN(strings.TrimSpace(c.Message().Payload), " ", 4)
	if len(args) < 4 {
		return c.Send(usageAdd(h.keywords).String(), tele.ModeHTML)
	}
	rawDate, rawStart, rawEnd, label := args[0], args[1], args[2], strings.TrimSpace(args[3])
	if label == "" {
		return c.Send(usageAdd(h.keywords).String(), tele.ModeHTML)
	}

	date, err := h.keywords.ParseDate(rawDate, h.now())
	if err != nil {
		return h.reject(c, err)
	}
	start, err := schedule.ParseClock(rawStart)
	if err != nil {
		return h.reject(c, err)
	}
	end, err := schedule.ParseClock(rawEnd)
	if err != nil {
		return h.reject(c, err)
	}

	act, err := h.store.AddActivity(ctx, c.Sender().ID, date, start.String(), end.String(), label)
	if err != nil {
		return h.reject(c, err)
	}
	return c.Send(renderAdded(act).String(), tele.ModeHTML)
}

// /schedule [date]: defaults to today.
func (h *Handlers) cmdSchedule(ctx context.Context, c tele.Context) error {
	raw := strings.TrimSpace(c.Message().Payload)
	if raw == "" {
		raw = h.keywords.Today
	}
	date, err := h.keywords.ParseDate(raw, h.now())
	if err != nil {
		return h.reject(c, err)
	}

	entries, err := h.store.ScheduleOnDay(ctx, c.Sender().ID, date)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Send(renderDay(date, entries).String(), tele.ModeHTML)
}

// /schedule_delete <label>: removes at most one matching activity.
func (h *Handlers) cmdScheduleDelete(ctx context.Context, c tele.Context) error {
	label := strings.TrimSpace(c.Message().Payload)
	if label == "" {
		return c.Send("Usage: /schedule_delete &lt;activity name&gt;", tele.ModeHTML)
	}

	n, err := h.store.DeleteActivity(ctx, c.Sender().ID, label)
	var notFound *storage.NotFoundError
	if errors.As(err, &notFound) {
		return c.Send(tgui.F("Nothing named %q in your schedule.", label).String(), tele.ModeHTML)
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.Send(tgui.F("Removed %d entry named %q from your schedule.", n, label).String(), tele.ModeHTML)
}

// /find_free_time [days]: common free time of the chat roster.
func (h *Handlers) cmdFindFreeTime(ctx context.Context, c tele.Context) error {
	days := h.horizon
	if raw := strings.TrimSpace(c.Message().Payload); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return h.reject(c, schedule.Invalidf("bad day count %q", raw))
		}
		days = n
	}

	members, err := h.store.Members(ctx, c.Chat().ID)
	if err != nil {
		return h.fail(c, err)
	}
	if len(members) == 0 {
		return c.Send(tgui.Lines(
			tgui.Esc("Nobody is on this chat's roster yet."),
			tgui.Esc("Members join with /add_me."),
		).String(), tele.ModeHTML)
	}

	free, err := h.finder.CommonFreeTime(ctx, members, days)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Send(renderFreeTime(free).String(), tele.ModeHTML)
}

// /add_me: put the sender on this chat's roster.
func (h *Handlers) cmdAddMe(ctx context.Context, c tele.Context) error {
	added, err := h.store.AddMember(ctx, c.Chat().ID, c.Sender().ID)
	if err != nil {
		return h.fail(c, err)
	}
	name := c.Sender().Username
	if name == "" {
		name = c.Sender().FirstName
	}
	if !added {
		return c.Send(tgui.F("@%s is already on the roster.", name).String(), tele.ModeHTML)
	}
	return c.Send(tgui.F("@%s added to the roster.", name).String(), tele.ModeHTML)
}

// reject reports recoverable input problems (validation, conflicts) back
// to the chat; the error is considered handled.
func (h *Handlers) reject(c tele.Context, err error) error {
	var vErr *schedule.ValidationError
	if errors.As(err, &vErr) {
		return c.Send(tgui.Lines(tgui.B("Rejected:"), tgui.Esc(vErr.Msg)).String(), tele.ModeHTML)
	}
	var cErr *storage.ConflictError
	if errors.As(err, &cErr) {
		return c.Send(renderConflicts(cErr).String(), tele.ModeHTML)
	}
	return h.fail(c, err)
}

// fail handles storage and other unexpected errors: log, apologize,
// propagate for the adapter's handler log.
func (h *Handlers) fail(c tele.Context, err error) error {
	h.log.Error("command failed", logx.Int64("chat_id", c.Chat().ID), logx.Err(err))
	_ = c.Send("Something went wrong, try again later.")
	return err
}

func usageAdd(kw schedule.Keywords) tgui.H {
	return tgui.Lines(
		tgui.B("Usage:")+" "+tgui.Code("/schedule_add <date> <start> <end> <name>"),
		tgui.F("Date: YYYY-MM-DD or %s/%s/%s. Times: HH:MM.",
			kw.Today, kw.Tomorrow, kw.Overmorrow),
	)
}
