package config

// Config is the full bot configuration.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// Unknown keys are rejected so typos surface at load/reload time.
type Config struct {
	Telegram      TelegramConfig      `json:"telegram"`
	Logging       LoggingConfig       `json:"logging"`
	Storage       StorageConfig       `json:"storage"`
	Defaults      DefaultsConfig      `json:"defaults"`
	Notifications NotificationsConfig `json:"notifications"`
	Maintenance   MaintenanceConfig   `json:"maintenance"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the SQLite reminder store.
type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// DefaultsConfig holds per-user fallbacks used before a user picks their own
// timezone/language.
type DefaultsConfig struct {
	Timezone string `json:"timezone,omitempty"` // IANA zone, default "Europe/Moscow"
	Language string `json:"language,omitempty"` // "ru" or "en", default "ru"
}

// NotificationsConfig controls the due-reminder delivery loop.
//
// MarkOnFailure is a pointer so "omitted" defaults to true (a failed delivery
// still marks the reminder notified, matching fire-and-forget semantics).
// Set it to false to keep failed reminders due so the next tick retries them.
type NotificationsConfig struct {
	Enabled         *bool  `json:"enabled,omitempty"`
	Interval        string `json:"interval,omitempty"`         // default "30s"
	DeliveryTimeout string `json:"delivery_timeout,omitempty"` // default "10s"
	MarkOnFailure   *bool  `json:"mark_on_failure,omitempty"`
	Concurrency     int    `json:"concurrency,omitempty"`  // default 4
	RatePerSec      int    `json:"rate_per_sec,omitempty"` // outgoing sends, default 3
}

// MaintenanceConfig controls the nightly sweep that marks stale notified
// reminders as missed.
type MaintenanceConfig struct {
	Enabled     *bool  `json:"enabled,omitempty"`
	MissedSweep string `json:"missed_sweep,omitempty"` // cron spec, default "5 0 * * *"
	MissedAfter string `json:"missed_after,omitempty"` // overdue grace, default "24h"
	Timezone    string `json:"timezone,omitempty"`     // defaults to defaults.timezone
}

// BoolOr resolves an optional bool against its default.
func BoolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
