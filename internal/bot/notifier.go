package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/matveystarhook/MLotify/internal/config"
	"github.com/matveystarhook/MLotify/internal/storage"
	"github.com/matveystarhook/MLotify/internal/transport"
	"github.com/matveystarhook/MLotify/pkg/logx"
	"github.com/matveystarhook/MLotify/pkg/tgui"
)

// Callback actions shared between the notifier's keyboards and the router's
// dispatch. Short on purpose: Telegram caps callback data at 64 bytes.
const (
	actConfirm  = "ok"
	actDiscard  = "no"
	actComplete = "done"
	actSnooze   = "snz"
)

// Notifier sends due reminders to their chats. It implements notify.Deliverer
// and throttles outgoing messages so a burst of due reminders cannot trip
// Telegram's flood limits.
type Notifier struct {
	ad    transport.Adapter
	store storage.Store
	log   logx.Logger

	mu       sync.RWMutex
	defaults config.DefaultsConfig
	limiter  *rate.Limiter
}

func NewNotifier(ad transport.Adapter, store storage.Store, defaults config.DefaultsConfig, ratePerSec int, log logx.Logger) *Notifier {
	if ratePerSec <= 0 {
		ratePerSec = 3
	}
	return &Notifier{
		ad:       ad,
		store:    store,
		log:      log,
		defaults: defaults,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
	}
}

// Apply updates throttling and fallbacks on config reload.
func (n *Notifier) Apply(defaults config.DefaultsConfig, ratePerSec int) {
	if ratePerSec <= 0 {
		ratePerSec = 3
	}
	n.mu.Lock()
	n.defaults = defaults
	n.limiter.SetLimit(rate.Limit(ratePerSec))
	n.limiter.SetBurst(ratePerSec)
	n.mu.Unlock()
}

func (n *Notifier) Deliver(ctx context.Context, r storage.Reminder) error {
	n.mu.RLock()
	defaults := n.defaults
	limiter := n.limiter
	n.mu.RUnlock()

	lang := defaults.Language
	muted := false
	user, err := n.store.UserByChat(ctx, r.ChatID)
	switch {
	case err == nil:
		if user.Language != "" {
			lang = user.Language
		}
		muted = !user.Notify
	case errors.Is(err, storage.ErrNotFound):
		// Chat without a profile row, fall back to defaults.
	default:
		return fmt.Errorf("load user %d: %w", r.ChatID, err)
	}
	if muted {
		n.log.Debug("notifications muted, skipping delivery",
			logx.Int64("chat_id", r.ChatID), logx.String("reminder_id", r.ID))
		return nil
	}

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	pack := packFor(lang)
	markup := tgui.Inline([]tgui.Btn{
		{Text: pack.BtnDone, Data: tgui.Data(actComplete, r.ID)},
		{Text: pack.BtnSnooze15, Data: tgui.Data(actSnooze, r.ID, "15")},
		{Text: pack.BtnSnooze1h, Data: tgui.Data(actSnooze, r.ID, "60")},
	})
	_, err = n.ad.SendText(ctx, transport.ChatTarget{ChatID: r.ChatID}, formatNotification(r, pack), &transport.SendOptions{
		ParseMode:          "HTML",
		ReplyMarkupAdapter: markup,
	})
	return err
}

// locFor resolves a user's timezone, falling back to the configured default
// and finally UTC.
func locFor(tz, fallback string) *time.Location {
	for _, name := range []string{tz, fallback} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}
