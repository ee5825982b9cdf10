package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matveystarhook/MLotify/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "reminders.db"),
		BusyTimeout: time.Second,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestUserRoundTrip(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.UserByChat(ctx, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: err = %v, want ErrNotFound", err)
	}

	u := User{
		ChatID:    7,
		Username:  "alice",
		FirstName: "Alice",
		Language:  "en",
		Timezone:  "Europe/London",
		Notify:    true,
	}
	if err := st.UpsertUser(ctx, u); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	got, err := st.UserByChat(ctx, 7)
	if err != nil {
		t.Fatalf("UserByChat: %v", err)
	}
	if got.Username != "alice" || got.Language != "en" || got.Timezone != "Europe/London" || !got.Notify {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("CreatedAt was not set")
	}

	// Upsert updates profile fields in place.
	u.Language = "ru"
	u.Notify = false
	if err := st.UpsertUser(ctx, u); err != nil {
		t.Fatalf("second UpsertUser: %v", err)
	}
	got, err = st.UserByChat(ctx, 7)
	if err != nil {
		t.Fatalf("UserByChat after update: %v", err)
	}
	if got.Language != "ru" || got.Notify {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestReminderLifecycle(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	created, err := st.CreateReminder(ctx, Reminder{
		ChatID:     7,
		Title:      "stretch",
		RemindAt:   now.Add(-time.Minute),
		Repeat:     RepeatCustom,
		RepeatDays: []int{0, 2, 4},
	})
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	if created.ID == "" || created.Status != StatusActive || created.Priority != PriorityMedium {
		t.Fatalf("defaults not applied: %+v", created)
	}

	got, err := st.ReminderByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("ReminderByID: %v", err)
	}
	if got.Title != "stretch" || len(got.RepeatDays) != 3 || got.RepeatDays[1] != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.RemindAt.UnixMilli() != created.RemindAt.UnixMilli() {
		t.Fatalf("remind_at drifted: %v vs %v", got.RemindAt, created.RemindAt)
	}

	due, err := st.FetchDue(ctx, now)
	if err != nil {
		t.Fatalf("FetchDue: %v", err)
	}
	if len(due) != 1 || due[0].ID != created.ID {
		t.Fatalf("due = %+v, want the created reminder", due)
	}

	// Double mark must not double-count.
	if err := st.MarkNotified(ctx, created.ID); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	if err := st.MarkNotified(ctx, created.ID); err != nil {
		t.Fatalf("second MarkNotified: %v", err)
	}
	got, _ = st.ReminderByID(ctx, created.ID)
	if !got.IsNotified || got.NotifyCount != 1 {
		t.Fatalf("notified=%v count=%d, want true/1", got.IsNotified, got.NotifyCount)
	}

	// Notified reminders are no longer due.
	due, err = st.FetchDue(ctx, now)
	if err != nil {
		t.Fatalf("FetchDue after mark: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("due after mark = %+v, want none", due)
	}

	// Snooze re-arms it.
	until := now.Add(15 * time.Minute)
	if err := st.Snooze(ctx, created.ID, until); err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	got, _ = st.ReminderByID(ctx, created.ID)
	if got.IsNotified || got.RemindAt.UnixMilli() != until.UnixMilli() {
		t.Fatalf("snooze not applied: %+v", got)
	}

	if err := st.MarkCompleted(ctx, created.ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	got, _ = st.ReminderByID(ctx, created.ID)
	if got.Status != StatusCompleted || got.CompletedAt.IsZero() {
		t.Fatalf("completion not recorded: %+v", got)
	}

	// Completed reminders reject further transitions.
	if err := st.MarkCompleted(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second complete: err = %v, want ErrNotFound", err)
	}
	if err := st.Snooze(ctx, created.ID, until); !errors.Is(err, ErrNotFound) {
		t.Fatalf("snooze completed: err = %v, want ErrNotFound", err)
	}
}

func TestCreateReminderRequiresTitle(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	if _, err := st.CreateReminder(context.Background(), Reminder{ChatID: 1}); err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestMarkCancelled(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	r, err := st.CreateReminder(ctx, Reminder{ChatID: 1, Title: "x", RemindAt: time.Now()})
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	if err := st.MarkCancelled(ctx, r.ID); err != nil {
		t.Fatalf("MarkCancelled: %v", err)
	}
	got, _ := st.ReminderByID(ctx, r.ID)
	if got.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
	if err := st.MarkCancelled(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cancel missing: err = %v, want ErrNotFound", err)
	}
}

func TestMarkMissedBefore(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	stale, _ := st.CreateReminder(ctx, Reminder{ChatID: 1, Title: "stale", RemindAt: now.Add(-48 * time.Hour)})
	fresh, _ := st.CreateReminder(ctx, Reminder{ChatID: 1, Title: "fresh", RemindAt: now.Add(-time.Hour)})
	pending, _ := st.CreateReminder(ctx, Reminder{ChatID: 1, Title: "never notified", RemindAt: now.Add(-72 * time.Hour)})

	_ = st.MarkNotified(ctx, stale.ID)
	_ = st.MarkNotified(ctx, fresh.ID)

	n, err := st.MarkMissedBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("MarkMissedBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("marked %d reminders, want 1", n)
	}
	if got, _ := st.ReminderByID(ctx, stale.ID); got.Status != StatusMissed {
		t.Fatalf("stale status = %s, want missed", got.Status)
	}
	if got, _ := st.ReminderByID(ctx, fresh.ID); got.Status != StatusActive {
		t.Fatalf("fresh status = %s, want active", got.Status)
	}
	// Un-notified reminders stay due for the delivery loop even if very old.
	if got, _ := st.ReminderByID(ctx, pending.ID); got.Status != StatusActive {
		t.Fatalf("pending status = %s, want active", got.Status)
	}
}

func TestListUpcomingAndStats(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Now()

	mk := func(title string, offset time.Duration) Reminder {
		r, err := st.CreateReminder(ctx, Reminder{ChatID: 9, Title: title, RemindAt: base.Add(offset)})
		if err != nil {
			t.Fatalf("CreateReminder(%s): %v", title, err)
		}
		return r
	}
	first := mk("first", time.Hour)
	mk("second", 2*time.Hour)
	done := mk("done", 3*time.Hour)
	mk("far", 30*24*time.Hour)
	_ = st.MarkCompleted(ctx, done.ID)

	// Other chats are invisible.
	if _, err := st.CreateReminder(ctx, Reminder{ChatID: 10, Title: "other", RemindAt: base.Add(time.Hour)}); err != nil {
		t.Fatalf("CreateReminder other chat: %v", err)
	}

	got, err := st.ListUpcoming(ctx, 9, base, base.Add(24*time.Hour), 10)
	if err != nil {
		t.Fatalf("ListUpcoming: %v", err)
	}
	if len(got) != 2 || got[0].ID != first.ID {
		t.Fatalf("upcoming = %+v, want first and second in order", got)
	}

	// Zero "to" means no upper bound.
	got, err = st.ListUpcoming(ctx, 9, base, time.Time{}, 10)
	if err != nil {
		t.Fatalf("ListUpcoming unbounded: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("unbounded upcoming = %d entries, want 3", len(got))
	}

	stats, err := st.Stats(ctx, 9)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Active != 3 || stats.Completed != 1 || stats.Missed != 0 || stats.Total != 4 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestNextInstance(t *testing.T) {
	t.Parallel()
	at := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	r := Reminder{
		ID:          "old",
		ChatID:      1,
		Title:       "daily standup",
		Priority:    PriorityHigh,
		RemindAt:    at.AddDate(0, 0, -1),
		Status:      StatusActive,
		Repeat:      RepeatDaily,
		IsNotified:  true,
		NotifyCount: 3,
		CompletedAt: at,
	}
	next := r.NextInstance(at)
	if next.ID != "" || !next.CreatedAt.IsZero() || !next.CompletedAt.IsZero() {
		t.Fatalf("identity fields not cleared: %+v", next)
	}
	if next.IsNotified || next.NotifyCount != 0 || next.Status != StatusActive {
		t.Fatalf("delivery state not reset: %+v", next)
	}
	if !next.RemindAt.Equal(at) {
		t.Fatalf("RemindAt = %v, want %v", next.RemindAt, at)
	}
	if next.Title != r.Title || next.Priority != r.Priority || next.Repeat != r.Repeat {
		t.Fatalf("payload not carried over: %+v", next)
	}
}
