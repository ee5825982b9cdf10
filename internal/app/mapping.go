package app

import (
	"time"

	"github.com/matveystarhook/MLotify/internal/config"
	"github.com/matveystarhook/MLotify/internal/maintenance"
	"github.com/matveystarhook/MLotify/internal/notify"
	"github.com/matveystarhook/MLotify/internal/storage"
	"github.com/matveystarhook/MLotify/pkg/logx"
)

// Config mapping between the user-facing file schema and per-service config
// structs. Kept separate from wiring so validation can reuse it: mapping a
// config that fails here rejects a hot reload before anything is applied.

func mapLogging(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorage(cfg *config.Config) (storage.Config, error) {
	busy, err := config.DurationOr("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func mapNotify(cfg *config.Config) (notify.Config, error) {
	interval, err := config.DurationOr("notifications.interval", cfg.Notifications.Interval, 30*time.Second)
	if err != nil {
		return notify.Config{}, err
	}
	timeout, err := config.DurationOr("notifications.delivery_timeout", cfg.Notifications.DeliveryTimeout, 10*time.Second)
	if err != nil {
		return notify.Config{}, err
	}
	return notify.Config{
		Enabled:         config.BoolOr(cfg.Notifications.Enabled, true),
		Interval:        interval,
		DeliveryTimeout: timeout,
		MarkOnFailure:   config.BoolOr(cfg.Notifications.MarkOnFailure, true),
		Concurrency:     cfg.Notifications.Concurrency,
	}, nil
}

func mapMaintenance(cfg *config.Config) (maintenance.Config, error) {
	after, err := config.DurationOr("maintenance.missed_after", cfg.Maintenance.MissedAfter, 24*time.Hour)
	if err != nil {
		return maintenance.Config{}, err
	}
	tz := cfg.Maintenance.Timezone
	if tz == "" {
		tz = cfg.Defaults.Timezone
	}
	return maintenance.Config{
		Enabled:     config.BoolOr(cfg.Maintenance.Enabled, true),
		SweepSpec:   cfg.Maintenance.MissedSweep,
		MissedAfter: after,
		Timezone:    tz,
	}, nil
}
