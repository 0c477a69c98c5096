package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"schedbot/internal/schedule"
	logx "schedbot/pkg/logx"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "sched.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddActivityValidation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for _, tc := range []struct{ start, end string }{
		{"10:00", "09:00"},
		{"10:00", "10:00"},
	} {
		_, err := s.AddActivity(ctx, 1, "2026-09-01", tc.start, tc.end, "gym")
		var vErr *schedule.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("AddActivity(%s-%s) = %v, want validation error", tc.start, tc.end, err)
		}
	}

	// Nothing must have been persisted.
	entries, err := s.ScheduleOnDay(ctx, 1, "2026-09-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("rejected inserts persisted rows: %v", entries)
	}
}

func TestConflictPredicate(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.AddActivity(ctx, 1, "2026-09-01", "10:00", "12:00", "standup"); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	tests := []struct {
		name       string
		start, end string
		conflicts  bool
	}{
		{name: "identical range", start: "10:00", end: "12:00", conflicts: true},
		{name: "overlap from left", start: "09:00", end: "10:30", conflicts: true},
		{name: "overlap from right", start: "11:30", end: "13:00", conflicts: true},
		{name: "contained", start: "10:30", end: "11:00", conflicts: true},
		{name: "containing", start: "09:00", end: "13:00", conflicts: true},
		{name: "touching end to start", start: "12:00", end: "13:00", conflicts: false},
		{name: "touching start to end", start: "09:00", end: "10:00", conflicts: false},
		{name: "disjoint after", start: "14:00", end: "15:00", conflicts: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Conflicts(ctx, 1, "2026-09-01", tt.start, tt.end)
			if err != nil {
				t.Fatal(err)
			}
			if (len(got) > 0) != tt.conflicts {
				t.Fatalf("Conflicts(%s-%s) = %v, want conflicts=%v", tt.start, tt.end, got, tt.conflicts)
			}
		})
	}

	// Same ranges on another day or user never conflict.
	if got, _ := s.Conflicts(ctx, 1, "2026-09-02", "10:00", "12:00"); len(got) != 0 {
		t.Fatalf("other day conflicts: %v", got)
	}
	if got, _ := s.Conflicts(ctx, 2, "2026-09-01", "10:00", "12:00"); len(got) != 0 {
		t.Fatalf("other user conflicts: %v", got)
	}
}

func TestAddActivityConflictCarriesRows(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.AddActivity(ctx, 7, "2026-09-01", "09:00", "10:00", "breakfast"); err != nil {
		t.Fatal(err)
	}
	_, err := s.AddActivity(ctx, 7, "2026-09-01", "09:30", "11:00", "call")
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("want ConflictError, got %v", err)
	}
	if len(cErr.Conflicts) != 1 || cErr.Conflicts[0].Label != "breakfast" {
		t.Fatalf("conflict payload = %+v", cErr.Conflicts)
	}

	// Touching insert still goes through.
	if _, err := s.AddActivity(ctx, 7, "2026-09-01", "10:00", "11:00", "call"); err != nil {
		t.Fatalf("touching insert rejected: %v", err)
	}
}

func TestScheduleOnDayOrder(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for _, a := range []struct{ start, end, label string }{
		{"09:00", "10:00", "first"},
		{"15:00", "16:00", "third"},
		{"11:00", "12:00", "second"},
	} {
		if _, err := s.AddActivity(ctx, 1, "2026-09-01", a.start, a.end, a.label); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := s.ScheduleOnDay(ctx, 1, "2026-09-01")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"third", "second", "first"} // newest start first
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, label := range want {
		if entries[i].Label != label {
			t.Fatalf("entry %d = %q, want %q", i, entries[i].Label, label)
		}
	}
}

func TestQueryRange(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	seed := []struct {
		user  int64
		date  string
		start string
		end   string
	}{
		{1, "2026-09-01", "09:00", "10:00"},
		{2, "2026-09-02", "13:00", "14:30"},
		{3, "2026-09-01", "09:00", "10:00"}, // user outside the query set
		{1, "2026-09-30", "09:00", "10:00"}, // date outside the range
	}
	for i, a := range seed {
		if _, err := s.AddActivity(ctx, a.user, a.date, a.start, a.end, "x"); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local)
	rows, err := s.QueryRange(ctx, []int64{1, 2}, from, from.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(rows), rows)
	}
	// Ordered by start datetime, with date and time combined.
	if rows[0].UserID != 1 || !rows[0].Start.Equal(time.Date(2026, 9, 1, 9, 0, 0, 0, time.Local)) {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	if rows[1].UserID != 2 || !rows[1].End.Equal(time.Date(2026, 9, 2, 14, 30, 0, 0, time.Local)) {
		t.Fatalf("row 1 = %+v", rows[1])
	}

	empty, err := s.QueryRange(ctx, nil, from, from.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatalf("empty user set returned rows: %+v", empty)
	}
}

func TestDeleteActivityRemovesAtMostOne(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.AddActivity(ctx, 1, "2026-09-01", "09:00", "10:00", "gym"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddActivity(ctx, 1, "2026-09-02", "09:00", "10:00", "gym"); err != nil {
		t.Fatal(err)
	}

	n, err := s.DeleteActivity(ctx, 1, "gym")
	if err != nil || n != 1 {
		t.Fatalf("first delete = %d, %v; want 1, nil", n, err)
	}
	n, err = s.DeleteActivity(ctx, 1, "gym")
	if err != nil || n != 1 {
		t.Fatalf("second delete = %d, %v; want 1, nil", n, err)
	}

	_, err = s.DeleteActivity(ctx, 1, "gym")
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("third delete = %v, want NotFoundError", err)
	}

	// Absent label never touches other users' rows.
	if _, err := s.AddActivity(ctx, 2, "2026-09-01", "09:00", "10:00", "gym"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DeleteActivity(ctx, 1, "gym"); !errors.As(err, &nfErr) {
		t.Fatalf("cross-user delete = %v, want NotFoundError", err)
	}
	entries, err := s.ScheduleOnDay(ctx, 2, "2026-09-01")
	if err != nil || len(entries) != 1 {
		t.Fatalf("other user's row disturbed: %v, %v", entries, err)
	}
}

func TestConcurrentOverlappingInserts(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddActivity(ctx, 1, "2026-09-01", "10:00", "11:00", "clash")
			mu.Lock()
			defer mu.Unlock()
			var cErr *ConflictError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &cErr):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || conflicts != attempts-1 {
		t.Fatalf("succeeded=%d conflicts=%d, want exactly one winner", succeeded, conflicts)
	}
	entries, err := s.ScheduleOnDay(ctx, 1, "2026-09-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("persisted %d rows, want 1", len(entries))
	}
}

func TestMembers(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	added, err := s.AddMember(ctx, 100, 1)
	if err != nil || !added {
		t.Fatalf("first AddMember = %v, %v", added, err)
	}
	added, err = s.AddMember(ctx, 100, 1)
	if err != nil || added {
		t.Fatalf("duplicate AddMember = %v, %v; want false, nil", added, err)
	}
	if _, err := s.AddMember(ctx, 100, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddMember(ctx, 200, 3); err != nil {
		t.Fatal(err)
	}

	members, err := s.Members(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 || members[0] != 1 || members[1] != 2 {
		t.Fatalf("Members(100) = %v", members)
	}

	chats, err := s.Chats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 || chats[0] != 100 || chats[1] != 200 {
		t.Fatalf("Chats() = %v", chats)
	}

	ok, err := s.HasMember(ctx, 200, 1)
	if err != nil || ok {
		t.Fatalf("HasMember(200, 1) = %v, %v", ok, err)
	}
}
