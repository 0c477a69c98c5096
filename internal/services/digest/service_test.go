package digest

import (
	"context"
	"strings"
	"testing"
	"time"

	"schedbot/internal/schedule"
	logx "schedbot/pkg/logx"
)

type fakeRosters struct {
	members map[int64][]int64
}

func (f *fakeRosters) Chats(ctx context.Context) ([]int64, error) {
	out := make([]int64, 0, len(f.members))
	for id := range f.members {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeRosters) Members(ctx context.Context, chatID int64) ([]int64, error) {
	return f.members[chatID], nil
}

type fakeSender struct {
	sent map[int64]string
}

func (f *fakeSender) Send(ctx context.Context, chatID int64, html string) error {
	if f.sent == nil {
		f.sent = map[int64]string{}
	}
	f.sent[chatID] = html
	return nil
}

type fakeRange struct{ rows []schedule.Busy }

func (f *fakeRange) QueryRange(ctx context.Context, userIDs []int64, from, to time.Time) ([]schedule.Busy, error) {
	return f.rows, nil
}

func TestDigestPostsPerChat(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 9, 1, 7, 0, 0, 0, time.Local)
	finder := schedule.NewFinder(&fakeRange{rows: []schedule.Busy{{
		UserID: 2,
		Interval: schedule.Interval{
			Start: time.Date(2026, 9, 1, 9, 0, 0, 0, time.Local),
			End:   time.Date(2026, 9, 1, 12, 0, 0, 0, time.Local),
		},
	}}}, schedule.WithNow(func() time.Time { return now }))

	rosters := &fakeRosters{members: map[int64][]int64{
		100: {1, 2},
		200: nil, // empty roster, nothing posted
	}}
	sender := &fakeSender{}

	s := New(Config{Enabled: true}, rosters, finder, sender, logx.Nop())
	s.run(context.Background())

	if len(sender.sent) != 1 {
		t.Fatalf("sent to %d chats, want 1: %v", len(sender.sent), sender.sent)
	}
	body, ok := sender.sent[100]
	if !ok {
		t.Fatalf("no post for chat 100: %v", sender.sent)
	}
	if !strings.Contains(body, "12:00") {
		t.Fatalf("digest body missing free slot start: %q", body)
	}
}

func TestDigestDisabledDoesNotSchedule(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: false}, &fakeRosters{}, schedule.NewFinder(&fakeRange{}), &fakeSender{}, logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.cron != nil {
		t.Fatal("disabled digest must not start cron")
	}
	s.Stop()
}

func TestDigestRejectsBadSpec(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Spec: "not a cron line"}, &fakeRosters{}, schedule.NewFinder(&fakeRange{}), &fakeSender{}, logx.Nop())
	if err := s.Start(context.Background()); err == nil {
		s.Stop()
		t.Fatal("bad cron spec must fail Start")
	}
}
