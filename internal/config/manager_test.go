package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{
		"telegram": {"token": "123:abc", "poll_timeout": "5s"},
		"logging": {"level": "debug", "console": true},
		"storage": {"path": "/tmp/reminders.db"},
		"defaults": {"timezone": "Europe/Moscow", "language": "ru"},
		"notifications": {"interval": "15s", "mark_on_failure": false, "concurrency": 2},
		"maintenance": {"missed_sweep": "5 0 * * *", "missed_after": "48h"}
	}`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Defaults.Timezone != "Europe/Moscow" || cfg.Defaults.Language != "ru" {
		t.Fatalf("defaults = %+v", cfg.Defaults)
	}
	if cfg.Notifications.MarkOnFailure == nil || *cfg.Notifications.MarkOnFailure {
		t.Fatal("mark_on_failure should be explicitly false")
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", `
telegram:
  token: "123:abc"
logging:
  level: info
  console: true
storage:
  path: ./reminders.db
notifications:
  enabled: true
  interval: 1m
`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notifications.Enabled == nil || !*cfg.Notifications.Enabled {
		t.Fatal("notifications.enabled should be true")
	}
	if cfg.Notifications.Interval != "1m" {
		t.Fatalf("interval = %q", cfg.Notifications.Interval)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"telegram": {"token": "x", "tokne_typo": 1}}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"telegram": {"token": "x"}} {"extra": true}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestSubscribePublish(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"telegram": {"token": "x"}}`)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	cfg := m.Get()
	m.publish(cfg)

	select {
	case got := <-sub:
		if got != cfg {
			t.Fatal("subscriber received a different config pointer")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the published config")
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "", want: 0},
		{raw: "30s", want: 30 * time.Second},
		{raw: " 2m ", want: 2 * time.Minute},
		{raw: "-1s", wantErr: true},
		{raw: "bogus", wantErr: true},
	}
	for _, tt := range tests {
		got, err := Duration("field", tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("Duration(%q): expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Duration(%q): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("Duration(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}

	if d, err := DurationOr("field", "", 5*time.Second); err != nil || d != 5*time.Second {
		t.Fatalf("DurationOr default: %v, %v", d, err)
	}
	if d, err := DurationOr("field", "1s", 5*time.Second); err != nil || d != time.Second {
		t.Fatalf("DurationOr explicit: %v, %v", d, err)
	}
}

func TestBoolOr(t *testing.T) {
	t.Parallel()
	tr, fa := true, false
	if !BoolOr(nil, true) || BoolOr(nil, false) {
		t.Fatal("nil pointer should yield the default")
	}
	if !BoolOr(&tr, false) || BoolOr(&fa, true) {
		t.Fatal("set pointer should win over the default")
	}
}
