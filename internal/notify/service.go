// Package notify runs the due-reminder delivery loop.
//
// The service ticks on a fixed interval; each tick fetches due reminders
// from the store, delivers them through the injected Deliverer, marks them
// notified, and spawns the next occurrence of repeating ones. Ticks are
// strictly sequential: a new tick never starts while the previous one is
// still running, so the same due reminder cannot be processed twice by
// overlapping scans.
package notify

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/matveystarhook/MLotify/internal/events"
	"github.com/matveystarhook/MLotify/internal/recurrence"
	"github.com/matveystarhook/MLotify/internal/storage"
	"github.com/matveystarhook/MLotify/pkg/logx"
)

// Deliverer is the transport-facing collaborator. A delivery error is
// non-fatal: the tick logs it and moves on.
type Deliverer interface {
	Deliver(ctx context.Context, r storage.Reminder) error
}

type Config struct {
	Enabled bool
	// Interval between due scans. Default 30s.
	Interval time.Duration
	// DeliveryTimeout bounds a single Deliver call so one stuck send cannot
	// stall the whole tick. Default 10s.
	DeliveryTimeout time.Duration
	// MarkOnFailure keeps the original fire-and-forget semantics: a failed
	// delivery still marks the reminder notified (no retry). Set false to
	// leave failed reminders due so the next tick retries them.
	MarkOnFailure bool
	// Concurrency caps parallel deliveries within one tick. Default 4.
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = 10 * time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	return c
}

type Service struct {
	mu  sync.Mutex
	cfg Config

	log     logx.Logger
	store   storage.Store
	deliver Deliverer
	bus     events.Bus

	// now is swappable for tests.
	now func() time.Time

	stopCh chan struct{}
	done   chan struct{}
}

func New(cfg Config, store storage.Store, d Deliverer, bus events.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = events.Nop()
	}
	return &Service{
		cfg:     cfg.withDefaults(),
		log:     log,
		store:   store,
		deliver: d,
		bus:     bus,
		now:     time.Now,
	}
}

// Apply updates the runtime settings; the next tick picks them up.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg.withDefaults()
	s.mu.Unlock()
}

func (s *Service) snapshot() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Start launches the tick loop. Calling Start on a running service is a
// no-op.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh != nil || !s.cfg.Enabled {
		s.mu.Unlock()
		return
	}
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	interval := s.cfg.Interval
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in notification loop",
					logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		s.log.Info("notification loop started", logx.Duration("interval", interval))
		s.loop(ctx, stopCh)
		s.log.Info("notification loop stopped")
	}()
}

// Stop lets the in-flight tick finish, then suppresses further ticks.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	stopCh, done := s.stopCh, s.done
	s.stopCh, s.done = nil, nil
	s.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (s *Service) loop(ctx context.Context, stopCh <-chan struct{}) {
	timer := time.NewTimer(s.snapshot().Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-timer.C:
		}

		s.runTick(ctx)
		// Re-read the interval so config reloads take effect without
		// restarting the loop.
		timer.Reset(s.snapshot().Interval)
	}
}

// runTick performs one scan-and-deliver cycle.
func (s *Service) runTick(ctx context.Context) {
	cfg := s.snapshot()
	now := s.now()
	start := time.Now()

	due, err := s.store.FetchDue(ctx, now)
	if err != nil {
		s.log.Warn("due reminders fetch failed", logx.Err(err))
		return
	}
	if len(due) == 0 {
		return
	}

	// Deliveries are independent per reminder; run them concurrently but
	// bounded, and wait for the whole batch before the tick ends.
	sem := make(chan struct{}, cfg.Concurrency)
	var wg sync.WaitGroup
	for _, r := range due {
		r := r
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			s.process(ctx, cfg, r, now)
		}()
	}
	wg.Wait()

	s.log.Info("due reminders processed",
		logx.Int("count", len(due)), logx.Duration("took", time.Since(start)))
}

func (s *Service) process(ctx context.Context, cfg Config, r storage.Reminder, now time.Time) {
	dctx, cancel := context.WithTimeout(ctx, cfg.DeliveryTimeout)
	err := s.deliver.Deliver(dctx, r)
	cancel()
	if err != nil {
		s.log.Warn("reminder delivery failed",
			logx.String("id", r.ID), logx.Int64("chat", r.ChatID), logx.Err(err))
		if !cfg.MarkOnFailure {
			// Stays due; the next tick retries it.
			return
		}
	}

	if err == nil {
		s.bus.Publish(events.Reminder(events.ReminderDelivered, r.ID, r.ChatID))
	}

	if err := s.store.MarkNotified(ctx, r.ID); err != nil {
		s.log.Error("mark notified failed", logx.String("id", r.ID), logx.Err(err))
		// Without the mark the reminder is still due; spawning a follow-up
		// now would double it up on the next tick.
		return
	}

	if r.Repeat == "" || r.Repeat == storage.RepeatNone {
		return
	}
	next, ok := recurrence.Next(r.RemindAt, recurrence.RuleOf(r))
	if !ok {
		s.log.Debug("recurrence finished", logx.String("id", r.ID), logx.String("kind", string(r.Repeat)))
		return
	}
	created, err := s.store.CreateReminder(ctx, r.NextInstance(next))
	if err != nil {
		s.log.Error("next occurrence create failed", logx.String("id", r.ID), logx.Err(err))
		return
	}
	s.bus.Publish(events.Reminder(events.ReminderRepeated, created.ID, created.ChatID))
	s.log.Debug("next occurrence scheduled",
		logx.String("id", created.ID), logx.String("after", r.ID), logx.Time("at", next))
}
