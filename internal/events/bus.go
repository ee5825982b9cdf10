// Package events is an in-memory fanout for reminder lifecycle signals.
// Components publish without knowing who listens; today the app attaches a
// debug-log subscriber, and new consumers (metrics, audit) can subscribe
// without touching the publishers.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Reminder lifecycle event types.
const (
	ReminderCreated   = "reminder.created"
	ReminderCompleted = "reminder.completed"
	ReminderSnoozed   = "reminder.snoozed"
	ReminderDelivered = "reminder.delivered"
	ReminderRepeated  = "reminder.repeated"
	SweepMissed       = "sweep.missed"
)

// Event carries one lifecycle signal. Publish never blocks; a slow
// subscriber drops events rather than stalling the publisher.
type Event struct {
	Type   string
	Time   time.Time
	ID     string // reminder id, when applicable
	ChatID int64  // owning chat, when applicable
	N      int64  // count payload (sweep results)
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns the in-memory bus. It owns no goroutines; delivery happens on
// the publisher's stack as a non-blocking send.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

// Reminder builds an event tied to one reminder.
func Reminder(typ, id string, chatID int64) Event {
	return Event{Type: typ, ID: id, ChatID: chatID}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	chs := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// A subscriber may unsubscribe concurrently and close its channel;
		// the recover absorbs the resulting send panic.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Nop is a bus that swallows everything; for components where events are
// optional.
func Nop() Bus { return nopBus{} }

type nopBus struct{}

func (nopBus) Publish(Event) {}
func (nopBus) Subscribe(int) (<-chan Event, func()) {
	ch := make(chan Event)
	return ch, func() {}
}
