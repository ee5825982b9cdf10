package maintenance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/matveystarhook/MLotify/internal/storage"
	"github.com/matveystarhook/MLotify/pkg/logx"
)

// sweepStore records MarkMissedBefore cutoffs; every other method is unused
// by this service.
type sweepStore struct {
	storage.Store

	mu      sync.Mutex
	cutoffs []time.Time
	marked  int64
}

func (s *sweepStore) MarkMissedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.marked, nil
}

func TestSweepUsesGracePeriod(t *testing.T) {
	t.Parallel()
	store := &sweepStore{marked: 3}
	s := New(Config{Enabled: true, MissedAfter: 48 * time.Hour}, store, nil, logx.Nop())

	before := time.Now().Add(-48 * time.Hour)
	s.Sweep(context.Background())
	after := time.Now().Add(-48 * time.Hour)

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.cutoffs) != 1 {
		t.Fatalf("sweeps = %d, want 1", len(store.cutoffs))
	}
	got := store.cutoffs[0]
	if got.Before(before) || got.After(after) {
		t.Fatalf("cutoff %v outside expected 48h window", got)
	}
}

func TestStartStopAndApply(t *testing.T) {
	t.Parallel()
	store := &sweepStore{}
	s := New(Config{Enabled: true}, store, nil, logx.Nop())

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Enabled() {
		t.Fatal("service should report enabled")
	}

	// New schedule hot-swaps in.
	if err := s.Apply(Config{Enabled: true, SweepSpec: "0 3 * * *"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// Bad spec keeps the previous schedule.
	if err := s.Apply(Config{Enabled: true, SweepSpec: "not a spec"}); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestDisabledStartIsNoop(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: false}, &sweepStore{}, nil, logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.started {
		t.Fatal("disabled service must not start the cron runner")
	}
}
