// Package maintenance runs periodic housekeeping over the reminder store.
// Its single job today is the nightly missed sweep: active reminders that
// were notified but never completed or snoozed within the grace period get
// flipped to the missed status so /stats and /list stay honest.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/matveystarhook/MLotify/internal/events"
	"github.com/matveystarhook/MLotify/internal/storage"
	"github.com/matveystarhook/MLotify/pkg/logx"
)

type Config struct {
	Enabled bool
	// SweepSpec is a standard 5-field cron expression. Default "5 0 * * *"
	// (shortly after midnight, once the previous day is fully over).
	SweepSpec string
	// MissedAfter is how long a notified reminder may sit untouched before
	// it counts as missed. Default 24h.
	MissedAfter time.Duration
	// Timezone anchors the cron schedule. Empty means UTC.
	Timezone string
}

func (c Config) withDefaults() Config {
	if c.SweepSpec == "" {
		c.SweepSpec = "5 0 * * *"
	}
	if c.MissedAfter <= 0 {
		c.MissedAfter = 24 * time.Hour
	}
	return c
}

type Service struct {
	store storage.Store
	bus   events.Bus
	log   logx.Logger

	mu      sync.Mutex
	cfg     Config
	cron    *cron.Cron
	runCtx  context.Context
	started bool
}

func New(cfg Config, store storage.Store, bus events.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = events.Nop()
	}
	return &Service{cfg: cfg.withDefaults(), store: store, bus: bus, log: log}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || !s.cfg.Enabled {
		return nil
	}
	s.runCtx = ctx
	if err := s.startLocked(); err != nil {
		return err
	}
	s.started = true

	// Catch up on anything that went stale while the bot was down.
	go s.Sweep(ctx)
	return nil
}

// startLocked builds and starts the cron runner for the current config.
// Caller holds the lock.
func (s *Service) startLocked() error {
	loc := time.UTC
	if s.cfg.Timezone != "" {
		l, err := time.LoadLocation(s.cfg.Timezone)
		if err != nil {
			return fmt.Errorf("maintenance timezone %q: %w", s.cfg.Timezone, err)
		}
		loc = l
	}
	c := cron.New(cron.WithLocation(loc))
	ctx := s.runCtx
	if _, err := c.AddFunc(s.cfg.SweepSpec, func() { s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("cron spec %q: %w", s.cfg.SweepSpec, err)
	}
	c.Start()
	s.cron = c
	s.log.Info("missed sweep scheduled",
		logx.String("spec", s.cfg.SweepSpec),
		logx.String("timezone", loc.String()),
		logx.Duration("missed_after", s.cfg.MissedAfter))
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.started = false
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply swaps the schedule on config reload. An invalid new config keeps the
// previous schedule running.
func (s *Service) Apply(cfg Config) error {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cron
	s.cfg = cfg
	if !s.started {
		return nil
	}
	if !cfg.Enabled {
		s.cron = nil
		s.started = false
		if old != nil {
			old.Stop()
		}
		return nil
	}
	if err := s.startLocked(); err != nil {
		s.cron = old
		return err
	}
	if old != nil {
		old.Stop()
	}
	return nil
}

// Sweep marks stale notified reminders as missed. Safe to call concurrently;
// the store update is a single idempotent statement.
func (s *Service) Sweep(ctx context.Context) {
	s.mu.Lock()
	grace := s.cfg.MissedAfter
	s.mu.Unlock()

	sctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-grace)
	n, err := s.store.MarkMissedBefore(sctx, cutoff)
	if err != nil {
		s.log.Error("missed sweep failed", logx.Err(err))
		return
	}
	if n > 0 {
		s.bus.Publish(events.Event{Type: events.SweepMissed, N: n})
		s.log.Info("missed sweep done", logx.Int64("marked", n), logx.Time("cutoff", cutoff))
	} else {
		s.log.Debug("missed sweep done, nothing stale")
	}
}
