package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Reminder(ReminderCreated, "r1", 42))

	select {
	case e := <-ch:
		if e.Type != ReminderCreated || e.ID != "r1" || e.ChatID != 42 {
			t.Fatalf("unexpected event: %+v", e)
		}
		if e.Time.IsZero() {
			t.Fatal("Publish should stamp the time")
		}
	case <-time.After(time.Second):
		t.Fatal("event never arrived")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	// The buffer holds one event; the rest must be dropped without blocking.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			b.Publish(Event{Type: SweepMissed, N: int64(i)})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1)
	unsub()
	unsub()
	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Type: ReminderDelivered})
}
