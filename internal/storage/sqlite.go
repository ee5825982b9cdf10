package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/matveystarhook/MLotify/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

// Open initializes the SQLite store, creating the file and schema if needed.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("storage path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
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

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- users ----

func (s *sqliteStore) UpsertUser(ctx context.Context, u User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(chat_id, username, first_name, language, timezone, notify, created_at)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   username=excluded.username, first_name=excluded.first_name,
		   language=excluded.language, timezone=excluded.timezone, notify=excluded.notify`,
		u.ChatID, nullStr(u.Username), u.FirstName, u.Language, u.Timezone, boolInt(u.Notify), u.CreatedAt.UnixMilli(),
	)
	return err
}

func (s *sqliteStore) UserByChat(ctx context.Context, chatID int64) (User, error) {
	var (
		u        User
		username sql.NullString
		notify   int
		created  int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT chat_id, username, first_name, language, timezone, notify, created_at
		 FROM users WHERE chat_id = ?`, chatID,
	).Scan(&u.ChatID, &username, &u.FirstName, &u.Language, &u.Timezone, &notify, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.Username = username.String
	u.Notify = notify != 0
	u.CreatedAt = time.UnixMilli(created)
	return u, nil
}

// ---- reminders ----

const reminderCols = `id, chat_id, title, description, category, priority,
 remind_at, created_at, completed_at, status, repeat_kind, repeat_days, repeat_end,
 is_notified, notify_count`

func (s *sqliteStore) CreateReminder(ctx context.Context, r Reminder) (Reminder, error) {
	if strings.TrimSpace(r.Title) == "" {
		return Reminder{}, errors.New("reminder title is empty")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if r.Repeat == "" {
		r.Repeat = RepeatNone
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(`+reminderCols+`)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.ChatID, r.Title, nullStr(r.Description), nullStr(r.Category), string(r.Priority),
		r.RemindAt.UnixMilli(), r.CreatedAt.UnixMilli(), nullTime(r.CompletedAt),
		string(r.Status), string(r.Repeat), nullStr(joinDays(r.RepeatDays)), nullTime(r.RepeatEnd),
		boolInt(r.IsNotified), r.NotifyCount,
	)
	if err != nil {
		return Reminder{}, err
	}
	s.log.Debug("reminder created",
		logx.String("id", r.ID), logx.Int64("chat", r.ChatID), logx.Time("at", r.RemindAt))
	return r, nil
}

func (s *sqliteStore) ReminderByID(ctx context.Context, id string) (Reminder, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reminderCols+` FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Reminder{}, ErrNotFound
	}
	return r, err
}

func (s *sqliteStore) FetchDue(ctx context.Context, now time.Time) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderCols+` FROM reminders
		 WHERE status = ? AND is_notified = 0 AND remind_at <= ?
		 ORDER BY remind_at ASC`,
		string(StatusActive), now.UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (s *sqliteStore) MarkNotified(ctx context.Context, id string) error {
	// is_notified=0 guard keeps the call idempotent: a second call for the
	// same due detection cannot bump notify_count again.
	_, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET is_notified = 1, notify_count = notify_count + 1
		 WHERE id = ? AND is_notified = 0`, id)
	return err
}

func (s *sqliteStore) MarkCompleted(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET status = ?, completed_at = ?
		 WHERE id = ? AND status = ?`,
		string(StatusCompleted), time.Now().UnixMilli(), id, string(StatusActive))
	return requireRow(res, err)
}

func (s *sqliteStore) MarkCancelled(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET status = ? WHERE id = ? AND status = ?`,
		string(StatusCancelled), id, string(StatusActive))
	return requireRow(res, err)
}

func (s *sqliteStore) Snooze(ctx context.Context, id string, until time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET remind_at = ?, is_notified = 0
		 WHERE id = ? AND status = ?`,
		until.UnixMilli(), id, string(StatusActive))
	return requireRow(res, err)
}

func (s *sqliteStore) MarkMissedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET status = ?
		 WHERE status = ? AND is_notified = 1 AND remind_at < ?`,
		string(StatusMissed), string(StatusActive), cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqliteStore) ListUpcoming(ctx context.Context, chatID int64, from, to time.Time, limit int) ([]Reminder, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + reminderCols + ` FROM reminders
	 WHERE chat_id = ? AND status = ? AND remind_at >= ?`
	args := []any{chatID, string(StatusActive), from.UnixMilli()}
	if !to.IsZero() {
		q += ` AND remind_at <= ?`
		args = append(args, to.UnixMilli())
	}
	q += ` ORDER BY remind_at ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (s *sqliteStore) Stats(ctx context.Context, chatID int64) (Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM reminders WHERE chat_id = ? GROUP BY status`, chatID)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	var st Stats
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, err
		}
		switch Status(status) {
		case StatusActive:
			st.Active = n
		case StatusCompleted:
			st.Completed = n
		case StatusMissed:
			st.Missed = n
		}
		st.Total += n
	}
	return st, rows.Err()
}

// ---- scanning helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (Reminder, error) {
	var (
		r                     Reminder
		descr, category, days sql.NullString
		completed, repeatEnd  sql.NullInt64
		remindAt, createdAt   int64
		notified              int
		priority, status, rep string
	)
	err := row.Scan(&r.ID, &r.ChatID, &r.Title, &descr, &category, &priority,
		&remindAt, &createdAt, &completed, &status, &rep, &days, &repeatEnd,
		&notified, &r.NotifyCount)
	if err != nil {
		return Reminder{}, err
	}
	r.Description = descr.String
	r.Category = category.String
	r.Priority = Priority(priority)
	r.RemindAt = time.UnixMilli(remindAt)
	r.CreatedAt = time.UnixMilli(createdAt)
	if completed.Valid {
		r.CompletedAt = time.UnixMilli(completed.Int64)
	}
	r.Status = Status(status)
	r.Repeat = RepeatKind(rep)
	r.RepeatDays = splitDays(days.String)
	if repeatEnd.Valid {
		r.RepeatEnd = time.UnixMilli(repeatEnd.Int64)
	}
	r.IsNotified = notified != 0
	return r, nil
}

func scanReminders(rows *sql.Rows) ([]Reminder, error) {
	var out []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func joinDays(days []int) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ",")
}

func splitDays(s string) []int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []int
	for _, p := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 6 {
			continue
		}
		out = append(out, n)
	}
	return out
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
