// Package app wires the reminder bot together: config, logging, storage,
// the Telegram transport, the update router, the notification loop, and the
// maintenance sweep. It owns startup order, config hot reload fan-out, and
// bounded shutdown.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matveystarhook/MLotify/internal/bot"
	"github.com/matveystarhook/MLotify/internal/config"
	"github.com/matveystarhook/MLotify/internal/events"
	"github.com/matveystarhook/MLotify/internal/maintenance"
	"github.com/matveystarhook/MLotify/internal/notify"
	"github.com/matveystarhook/MLotify/internal/storage"
	"github.com/matveystarhook/MLotify/internal/transport"
	"github.com/matveystarhook/MLotify/internal/transport/telegram"
	"github.com/matveystarhook/MLotify/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service
	bus  events.Bus

	store   storage.Store
	adapter transport.Adapter

	router   *bot.Router
	notifier *bot.Notifier
	notif    *notify.Service
	maint    *maintenance.Service

	wg sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogging(cfg))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	pollTimeout, err := config.DurationOr("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	storeCfg, err := mapStorage(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storeCfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	bus := events.New()

	notifier := bot.NewNotifier(ad, store, cfg.Defaults, cfg.Notifications.RatePerSec,
		log.With(logx.String("comp", "notifier")))

	notifCfg, err := mapNotify(cfg)
	if err != nil {
		return nil, err
	}
	notifSvc := notify.New(notifCfg, store, notifier, bus, log.With(logx.String("comp", "notify")))

	maintCfg, err := mapMaintenance(cfg)
	if err != nil {
		return nil, err
	}
	maint := maintenance.New(maintCfg, store, bus, log.With(logx.String("comp", "maintenance")))

	router := bot.NewRouter(ad, store, cfg.Defaults, bus, log.With(logx.String("comp", "bot")))

	return &App{
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		bus:      bus,
		store:    store,
		adapter:  ad,
		router:   router,
		notifier: notifier,
		notif:    notifSvc,
		maint:    maint,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	if err := a.adapter.Start(ctx, a.router.Inbox()); err != nil {
		return fmt.Errorf("start telegram adapter: %w", err)
	}
	if err := a.router.Start(ctx); err != nil {
		return fmt.Errorf("start router: %w", err)
	}
	a.notif.Start(ctx)
	if err := a.maint.Start(ctx); err != nil {
		return fmt.Errorf("start maintenance: %w", err)
	}

	// Lifecycle events at debug level; cheap visibility into what the bot
	// is doing without raising the log level of the components themselves.
	evts, unsubEvents := a.bus.Subscribe(128)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer unsubEvents()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-evts:
				if !ok {
					return
				}
				a.log.Debug("event",
					logx.String("type", e.Type),
					logx.String("id", e.ID),
					logx.Int64("chat", e.ChatID))
			}
		}
	}()

	// Config file watch plus reload fan-out.
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(ctx); err != nil && ctx.Err() == nil {
			a.log.Warn("config watch exited", logx.Err(err))
		}
	}()
	sub := a.cfgm.Subscribe(8)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(ctx, sub)
	}()

	a.log.Info("started")
	return nil
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts, keep only the newest config.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						cfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			a.applyConfig(ctx, cfg)
		}
	}
}

// applyConfig pushes a reloaded config into every live component. Sections
// that fail to map keep their previous settings; a reload never tears the
// app down.
func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	a.logs.Apply(mapLogging(cfg))

	a.router.Apply(cfg.Defaults)
	a.notifier.Apply(cfg.Defaults, cfg.Notifications.RatePerSec)

	if ncfg, err := mapNotify(cfg); err != nil {
		a.log.Warn("invalid notifications config, keeping previous", logx.Err(err))
	} else {
		a.notif.Apply(ncfg)
		if ncfg.Enabled {
			a.notif.Start(ctx)
		} else {
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			a.notif.Stop(stopCtx)
			cancel()
		}
	}

	if mcfg, err := mapMaintenance(cfg); err != nil {
		a.log.Warn("invalid maintenance config, keeping previous", logx.Err(err))
	} else if err := a.maint.Apply(mcfg); err != nil {
		a.log.Warn("maintenance reload failed, keeping previous", logx.Err(err))
	}

	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context) error {
	a.log.Info("stopping")

	// Bound each shutdown step so one stuck component cannot stall the rest.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()
		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached, continuing", logx.String("name", name))
		}
	}

	// Order: stop producing notifications, then stop handling updates, then
	// the transport, then close the store once nothing writes to it.
	step("maintenance", 2*time.Second, a.maint.Stop)
	step("notify", 3*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("router", 2*time.Second, a.router.Stop)
	step("adapter", 3*time.Second, a.adapter.Stop)
	step("storage", 2*time.Second, func(context.Context) error { return a.store.Close() })

	waitDone := make(chan struct{})
	go func() { a.wg.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
	}

	a.log.Info("stopped")
	return nil
}
