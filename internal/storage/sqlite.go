package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"schedbot/internal/schedule"
	logx "schedbot/pkg/logx"
)

//go:embed schema.sql
var schemaFS embed.FS

// Store is the activity store. All methods are safe for concurrent use;
// SQLite writes are additionally serialized by the single-connection
// pool below.
type Store struct {
	db  *sql.DB
	log logx.Logger
}

func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &Store{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// querier lets the conflict query run either on the pool or inside the
// insert transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const conflictQuery = `
SELECT ID, user_id, date, start_time, end_time, activity_name
FROM schedules
WHERE user_id = ? AND date = ?
  AND ? < end_time AND ? > start_time
ORDER BY start_time`

// Conflicts returns the user's activities on date that overlap the
// half-open candidate range [start, end). Activities that merely touch
// the candidate do not conflict. Pure read; an empty result means an
// insert of the candidate may proceed.
func (s *Store) Conflicts(ctx context.Context, userID int64, date, start, end string) ([]Activity, error) {
	return conflictsOn(ctx, s.db, userID, date, start, end)
}

func conflictsOn(ctx context.Context, q querier, userID int64, date, start, end string) ([]Activity, error) {
	rows, err := q.QueryContext(ctx, conflictQuery, userID, date, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.Date, &a.Start, &a.End, &a.Label); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddActivity validates the candidate range, then re-checks conflicts and
// inserts inside one transaction, so two concurrent overlapping inserts
// for the same user and day cannot both pass the check.
//
// Errors: *schedule.ValidationError when end <= start, *ConflictError
// (with the overlapping rows) when occupied, otherwise the storage error.
func (s *Store) AddActivity(ctx context.Context, userID int64, date, start, end, label string) (Activity, error) {
	// Zero-padded HH:MM text compares like its clock value.
	if start >= end {
		return Activity{}, schedule.Invalidf("end %s must be after start %s", end, start)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Activity{}, err
	}
	defer func() { _ = tx.Rollback() }()

	conflicts, err := conflictsOn(ctx, tx, userID, date, start, end)
	if err != nil {
		return Activity{}, err
	}
	if len(conflicts) > 0 {
		return Activity{}, &ConflictError{Conflicts: conflicts}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO schedules(user_id, date, start_time, end_time, activity_name)
		 VALUES(?,?,?,?,?)`,
		userID, date, start, end, label,
	)
	if err != nil {
		return Activity{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Activity{}, err
	}
	if err := tx.Commit(); err != nil {
		return Activity{}, err
	}

	a := Activity{ID: id, UserID: userID, Date: date, Start: start, End: end, Label: label}
	s.log.Debug("activity added",
		logx.Int64("user_id", userID), logx.String("date", date),
		logx.String("range", start+"-"+end))
	return a, nil
}

const datetimeLayout = "2006-01-02 15:04:05"

// QueryRange returns every busy interval of the given users whose date
// lies in [from, to], as concrete datetimes, ordered by start.
func (s *Store) QueryRange(ctx context.Context, userIDs []int64, from, to time.Time) ([]schedule.Busy, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, 0, len(userIDs)+2)
	for _, id := range userIDs {
		args = append(args, id)
	}
	args = append(args, from.Format(schedule.DateLayout), to.Format(schedule.DateLayout))

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT user_id,
		       datetime(date || ' ' || start_time) AS start_dt,
		       datetime(date || ' ' || end_time)   AS end_dt
		FROM schedules
		WHERE user_id IN (%s) AND date >= ? AND date <= ?
		ORDER BY start_dt`, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.Busy
	for rows.Next() {
		var (
			b        schedule.Busy
			startRaw string
			endRaw   string
		)
		if err := rows.Scan(&b.UserID, &startRaw, &endRaw); err != nil {
			return nil, err
		}
		if b.Start, err = time.ParseInLocation(datetimeLayout, startRaw, time.Local); err != nil {
			return nil, fmt.Errorf("corrupt start datetime %q: %w", startRaw, err)
		}
		if b.End, err = time.ParseInLocation(datetimeLayout, endRaw, time.Local); err != nil {
			return nil, fmt.Errorf("corrupt end datetime %q: %w", endRaw, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ScheduleOnDay lists one user's activities for the day, newest start
// first (display order).
func (s *Store) ScheduleOnDay(ctx context.Context, userID int64, date string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_time, end_time, activity_name
		FROM schedules
		WHERE user_id = ? AND date = ?
		ORDER BY start_time DESC`, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Start, &e.End, &e.Label); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteActivity removes at most one activity matching (userID, label)
// per call and returns how many rows went away. This is a deliberate,
// documented contract: repeated labels need repeated calls. A zero count
// comes back as *NotFoundError.
func (s *Store) DeleteActivity(ctx context.Context, userID int64, label string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM schedules
		WHERE ID IN (
			SELECT ID FROM schedules
			WHERE user_id = ? AND activity_name = ?
			ORDER BY ID LIMIT 1
		)`, userID, label)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, &NotFoundError{UserID: userID, Label: label}
	}
	return n, nil
}
