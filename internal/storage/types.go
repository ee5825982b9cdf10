// Package storage persists users and reminders in SQLite.
//
// Reminders are treated as immutable snapshots by callers: state transitions
// go through dedicated store methods (MarkNotified, MarkCompleted, Snooze)
// and repeating reminders spawn brand-new rows, never in-place mutations.
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("storage: not found")

type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusMissed    Status = "missed"
	StatusCancelled Status = "cancelled"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type RepeatKind string

const (
	RepeatNone     RepeatKind = "none"
	RepeatDaily    RepeatKind = "daily"
	RepeatWeekly   RepeatKind = "weekly"
	RepeatMonthly  RepeatKind = "monthly"
	RepeatWeekdays RepeatKind = "weekdays"
	RepeatCustom   RepeatKind = "custom"
)

// User holds the per-chat settings the bot needs: which language to parse
// and reply in, and which zone the user's wall-clock expressions live in.
type User struct {
	ChatID    int64
	Username  string
	FirstName string
	Language  string // "ru" / "en"
	Timezone  string // IANA zone name
	Notify    bool
	CreatedAt time.Time
}

type Reminder struct {
	ID     string
	ChatID int64

	Title       string
	Description string
	Category    string
	Priority    Priority

	RemindAt    time.Time
	CreatedAt   time.Time
	CompletedAt time.Time // zero unless completed

	Status Status

	Repeat     RepeatKind
	RepeatDays []int     // weekday indices 0=Mon..6=Sun; custom only
	RepeatEnd  time.Time // zero = unbounded

	IsNotified  bool
	NotifyCount int
}

// NextInstance returns the follow-up occurrence of a repeating reminder:
// payload fields copied verbatim, schedule reset for the new time.
// The store assigns ID and CreatedAt on insert.
func (r Reminder) NextInstance(at time.Time) Reminder {
	next := r
	next.ID = ""
	next.RemindAt = at
	next.CreatedAt = time.Time{}
	next.CompletedAt = time.Time{}
	next.Status = StatusActive
	next.IsNotified = false
	next.NotifyCount = 0
	return next
}

type Stats struct {
	Active    int
	Completed int
	Missed    int
	Total     int
}

// Store is the persistence API consumed by the bot and the notification loop.
type Store interface {
	UpsertUser(ctx context.Context, u User) error
	UserByChat(ctx context.Context, chatID int64) (User, error)

	CreateReminder(ctx context.Context, r Reminder) (Reminder, error)
	ReminderByID(ctx context.Context, id string) (Reminder, error)

	// FetchDue returns active, not-yet-notified reminders with
	// remind_at <= now.
	FetchDue(ctx context.Context, now time.Time) ([]Reminder, error)

	// MarkNotified sets is_notified and increments notification_count.
	// It is idempotent: a reminder already marked is left untouched, so a
	// repeated call cannot double-increment the count.
	MarkNotified(ctx context.Context, id string) error

	MarkCompleted(ctx context.Context, id string) error
	MarkCancelled(ctx context.Context, id string) error

	// Snooze re-arms a reminder: new remind_at, notified flag cleared.
	Snooze(ctx context.Context, id string, until time.Time) error

	// MarkMissedBefore flips active reminders that were notified before the
	// cutoff and never acted on to the missed status. Returns rows affected.
	MarkMissedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	ListUpcoming(ctx context.Context, chatID int64, from, to time.Time, limit int) ([]Reminder, error)
	Stats(ctx context.Context, chatID int64) (Stats, error)

	Close() error
}
