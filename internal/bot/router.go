// Package bot turns transport updates into reminder operations: free text is
// parsed into a draft, confirmed drafts become stored reminders, and inline
// buttons complete or snooze them.
package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/matveystarhook/MLotify/internal/config"
	"github.com/matveystarhook/MLotify/internal/events"
	"github.com/matveystarhook/MLotify/internal/nlparse"
	"github.com/matveystarhook/MLotify/internal/storage"
	"github.com/matveystarhook/MLotify/internal/transport"
	"github.com/matveystarhook/MLotify/pkg/logx"
	"github.com/matveystarhook/MLotify/pkg/tgui"
)

const (
	handleTimeout = 15 * time.Second

	// Parses below this confidence still produce a draft, but the confirm
	// message asks the user to double-check the time.
	confidentParse = 0.8

	listHorizon = 31 * 24 * time.Hour
	listLimit   = 10
)

// Router consumes the transport update stream. Updates are handled one at a
// time; heavy lifting happens in storage and the parser, both cheap enough
// that sequential handling keeps ordering simple.
type Router struct {
	ad    transport.Adapter
	store storage.Store
	bus   events.Bus
	log   logx.Logger

	mu       sync.RWMutex
	defaults config.DefaultsConfig
	parsers  map[string]*nlparse.Parser

	drafts  *draftBox
	updates chan transport.Update

	stopCh chan struct{}
	done   chan struct{}
}

func NewRouter(ad transport.Adapter, store storage.Store, defaults config.DefaultsConfig, bus events.Bus, log logx.Logger) *Router {
	if bus == nil {
		bus = events.Nop()
	}
	return &Router{
		ad:       ad,
		store:    store,
		bus:      bus,
		log:      log,
		defaults: defaults,
		parsers:  make(map[string]*nlparse.Parser),
		drafts:   newDraftBox(10 * time.Minute),
		updates:  make(chan transport.Update, 128),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Inbox is the channel the transport adapter feeds.
func (r *Router) Inbox() chan transport.Update { return r.updates }

func (r *Router) Start(ctx context.Context) error {
	go r.loop(ctx)
	return nil
}

func (r *Router) Stop(ctx context.Context) error {
	close(r.stopCh)
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply updates per-user fallbacks on config reload.
func (r *Router) Apply(defaults config.DefaultsConfig) {
	r.mu.Lock()
	r.defaults = defaults
	r.mu.Unlock()
}

func (r *Router) loop(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case u := <-r.updates:
			r.dispatch(ctx, u)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, u transport.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("update handler panicked",
				logx.Any("panic", rec),
				logx.String("stack", string(debug.Stack())))
		}
	}()
	hctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	var err error
	switch u.Kind {
	case transport.UpdateMessage:
		if u.Message != nil {
			err = r.handleMessage(hctx, u.Message)
		}
	case transport.UpdateCallback:
		if u.Callback != nil {
			err = r.handleCallback(hctx, u.Callback)
		}
	}
	if err != nil {
		r.log.Error("update handling failed", logx.Err(err))
	}
}

func (r *Router) currentDefaults() config.DefaultsConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults
}

// parserFor returns a cached parser for the user's timezone and language,
// falling back to the configured defaults when the zone cannot be loaded.
func (r *Router) parserFor(tz, lang string) *nlparse.Parser {
	defaults := r.currentDefaults()
	if tz == "" {
		tz = defaults.Timezone
	}
	if lang == "" {
		lang = defaults.Language
	}
	key := tz + "|" + lang

	r.mu.RLock()
	p := r.parsers[key]
	r.mu.RUnlock()
	if p != nil {
		return p
	}

	p, err := nlparse.New(tz, lang)
	if err != nil {
		r.log.Warn("bad user timezone, using UTC",
			logx.String("timezone", tz), logx.Err(err))
		p, _ = nlparse.New("UTC", lang)
	}
	r.mu.Lock()
	r.parsers[key] = p
	r.mu.Unlock()
	return p
}

// ensureUser loads the chat's profile, creating one from defaults on first
// contact.
func (r *Router) ensureUser(ctx context.Context, m *transport.Message) (storage.User, error) {
	u, err := r.store.UserByChat(ctx, m.ChatID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.User{}, err
	}
	defaults := r.currentDefaults()
	u = storage.User{
		ChatID:    m.ChatID,
		Username:  m.FromUsername,
		FirstName: m.FromName,
		Language:  defaults.Language,
		Timezone:  defaults.Timezone,
		Notify:    true,
	}
	if err := r.store.UpsertUser(ctx, u); err != nil {
		return storage.User{}, fmt.Errorf("create user %d: %w", m.ChatID, err)
	}
	return u, nil
}

func (r *Router) handleMessage(ctx context.Context, m *transport.Message) error {
	text := strings.TrimSpace(m.Text)
	if text == "" {
		return nil
	}
	user, err := r.ensureUser(ctx, m)
	if err != nil {
		return err
	}
	if strings.HasPrefix(text, "/") {
		return r.handleCommand(ctx, user, text)
	}
	return r.handleFreeText(ctx, user, text)
}

func (r *Router) handleCommand(ctx context.Context, user storage.User, text string) error {
	pack := packFor(user.Language)
	loc := locFor(user.Timezone, r.currentDefaults().Timezone)

	fields := strings.Fields(text)
	cmd := fields[0]
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start":
		return r.send(ctx, user.ChatID, pack.Welcome, nil)
	case "/help":
		return r.send(ctx, user.ChatID, pack.Help, nil)

	case "/list":
		now := time.Now().In(loc)
		rs, err := r.store.ListUpcoming(ctx, user.ChatID, now, now.Add(listHorizon), listLimit)
		if err != nil {
			return err
		}
		return r.send(ctx, user.ChatID, formatList(rs, pack, loc), nil)

	case "/today":
		now := time.Now().In(loc)
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		rs, err := r.store.ListUpcoming(ctx, user.ChatID, dayStart, dayStart.AddDate(0, 0, 1), 50)
		if err != nil {
			return err
		}
		return r.send(ctx, user.ChatID, formatToday(rs, pack, loc), nil)

	case "/stats":
		s, err := r.store.Stats(ctx, user.ChatID)
		if err != nil {
			return err
		}
		return r.send(ctx, user.ChatID, formatStats(s, pack), nil)

	case "/lang":
		if len(fields) < 2 {
			return r.send(ctx, user.ChatID, pack.LangUsage, nil)
		}
		lang := strings.ToLower(fields[1])
		if _, ok := langPacks[lang]; !ok {
			return r.send(ctx, user.ChatID, pack.LangUsage, nil)
		}
		user.Language = lang
		if err := r.store.UpsertUser(ctx, user); err != nil {
			return err
		}
		return r.send(ctx, user.ChatID, packFor(lang).LangSet, nil)

	case "/tz":
		if len(fields) < 2 {
			return r.send(ctx, user.ChatID, pack.TZUsage, nil)
		}
		zone := fields[1]
		if _, err := time.LoadLocation(zone); err != nil {
			return r.send(ctx, user.ChatID, fmt.Sprintf(pack.TZBad, zone), nil)
		}
		user.Timezone = zone
		if err := r.store.UpsertUser(ctx, user); err != nil {
			return err
		}
		return r.send(ctx, user.ChatID, fmt.Sprintf(pack.TZSet, zone), nil)
	}

	// Unknown command: point at the help text.
	return r.send(ctx, user.ChatID, pack.Help, nil)
}

func (r *Router) handleFreeText(ctx context.Context, user storage.User, text string) error {
	pack := packFor(user.Language)
	loc := locFor(user.Timezone, r.currentDefaults().Timezone)

	res := r.parserFor(user.Timezone, user.Language).Parse(text)
	if !res.Matched() {
		return r.send(ctx, user.ChatID, pack.NoTime, nil)
	}

	rem := storage.Reminder{
		ChatID:   user.ChatID,
		Title:    res.Title,
		Priority: storage.PriorityMedium,
		RemindAt: res.RemindAt,
		Status:   storage.StatusActive,
		Repeat:   storage.RepeatNone,
	}
	token := r.drafts.put(rem)

	markup := tgui.Inline([]tgui.Btn{
		{Text: pack.BtnConfirm, Data: tgui.Data(actConfirm, token)},
		{Text: pack.BtnCancel, Data: tgui.Data(actDiscard, token)},
	})
	return r.send(ctx, user.ChatID, formatConfirm(rem, pack, loc, res.Confidence < confidentParse), markup)
}

func (r *Router) handleCallback(ctx context.Context, cb *transport.Callback) error {
	defaults := r.currentDefaults()
	lang, tz := defaults.Language, defaults.Timezone
	if user, err := r.store.UserByChat(ctx, cb.ChatID); err == nil {
		if user.Language != "" {
			lang = user.Language
		}
		if user.Timezone != "" {
			tz = user.Timezone
		}
	}
	pack := packFor(lang)
	loc := locFor(tz, defaults.Timezone)
	ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}

	action, parts := tgui.SplitData(cb.Data)
	switch action {
	case actConfirm:
		if len(parts) < 1 {
			return r.ad.AnswerCallback(ctx, cb.ID, "")
		}
		rem, ok := r.drafts.take(parts[0])
		if !ok {
			return r.ad.AnswerCallback(ctx, cb.ID, pack.Expired)
		}
		created, err := r.store.CreateReminder(ctx, rem)
		if err != nil {
			return fmt.Errorf("create reminder: %w", err)
		}
		r.bus.Publish(events.Reminder(events.ReminderCreated, created.ID, created.ChatID))
		if err := r.edit(ctx, ref, formatCreated(created, pack, loc), nil); err != nil {
			r.log.Warn("edit confirm message failed", logx.Err(err))
		}
		return r.ad.AnswerCallback(ctx, cb.ID, "")

	case actDiscard:
		if len(parts) >= 1 {
			r.drafts.take(parts[0])
		}
		if err := r.edit(ctx, ref, pack.Cancelled, nil); err != nil {
			r.log.Warn("edit confirm message failed", logx.Err(err))
		}
		return r.ad.AnswerCallback(ctx, cb.ID, "")

	case actComplete:
		if len(parts) < 1 {
			return r.ad.AnswerCallback(ctx, cb.ID, "")
		}
		id := parts[0]
		err := r.store.MarkCompleted(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return r.ad.AnswerCallback(ctx, cb.ID, pack.NotFound)
		}
		if err != nil {
			return fmt.Errorf("complete reminder %s: %w", id, err)
		}
		r.bus.Publish(events.Reminder(events.ReminderCompleted, id, cb.ChatID))
		if rem, err := r.store.ReminderByID(ctx, id); err == nil {
			text := formatNotification(rem, pack) + "\n\n" + string(tgui.Esc(pack.Completed))
			if err := r.edit(ctx, ref, text, nil); err != nil {
				r.log.Warn("edit notification failed", logx.Err(err))
			}
		}
		return r.ad.AnswerCallback(ctx, cb.ID, pack.Completed)

	case actSnooze:
		if len(parts) < 2 {
			return r.ad.AnswerCallback(ctx, cb.ID, "")
		}
		id := parts[0]
		mins, err := strconv.Atoi(parts[1])
		if err != nil || mins <= 0 {
			return r.ad.AnswerCallback(ctx, cb.ID, "")
		}
		until := time.Now().Add(time.Duration(mins) * time.Minute)
		err = r.store.Snooze(ctx, id, until)
		if errors.Is(err, storage.ErrNotFound) {
			return r.ad.AnswerCallback(ctx, cb.ID, pack.NotFound)
		}
		if err != nil {
			return fmt.Errorf("snooze reminder %s: %w", id, err)
		}
		r.bus.Publish(events.Reminder(events.ReminderSnoozed, id, cb.ChatID))
		return r.ad.AnswerCallback(ctx, cb.ID, fmt.Sprintf(pack.Snoozed, formatClock(until, loc)))
	}

	return r.ad.AnswerCallback(ctx, cb.ID, "")
}

func (r *Router) send(ctx context.Context, chatID int64, text string, markup any) error {
	opt := &transport.SendOptions{ParseMode: "HTML", DisablePreview: true}
	if markup != nil {
		opt.ReplyMarkupAdapter = markup
	}
	_, err := r.ad.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, opt)
	return err
}

func (r *Router) edit(ctx context.Context, ref transport.MessageRef, text string, markup any) error {
	opt := &transport.SendOptions{ParseMode: "HTML", DisablePreview: true}
	if markup != nil {
		opt.ReplyMarkupAdapter = markup
	}
	return r.ad.EditText(ctx, ref, text, opt)
}
