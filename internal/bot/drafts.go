package bot

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matveystarhook/MLotify/internal/storage"
)

// draftBox keeps reminders awaiting user confirmation, keyed by the token
// embedded in the confirm keyboard. Drafts never touch the database; an
// abandoned one simply ages out.
type draftBox struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]draft
}

type draft struct {
	reminder storage.Reminder
	expires  time.Time
}

func newDraftBox(ttl time.Duration) *draftBox {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &draftBox{ttl: ttl, m: make(map[string]draft)}
}

func (b *draftBox) put(r storage.Reminder) string {
	token := uuid.NewString()
	now := time.Now()
	b.mu.Lock()
	b.prune(now)
	b.m[token] = draft{reminder: r, expires: now.Add(b.ttl)}
	b.mu.Unlock()
	return token
}

func (b *draftBox) take(token string) (storage.Reminder, bool) {
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune(now)
	d, ok := b.m[token]
	if !ok {
		return storage.Reminder{}, false
	}
	delete(b.m, token)
	return d.reminder, true
}

// prune drops expired drafts. Caller holds the lock.
func (b *draftBox) prune(now time.Time) {
	for token, d := range b.m {
		if now.After(d.expires) {
			delete(b.m, token)
		}
	}
}
