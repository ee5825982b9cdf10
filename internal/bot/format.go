package bot

import (
	"fmt"
	"time"

	"github.com/matveystarhook/MLotify/internal/storage"
	"github.com/matveystarhook/MLotify/pkg/tgui"
)

func priorityEmoji(p storage.Priority) string {
	switch p {
	case storage.PriorityHigh:
		return "🔴"
	case storage.PriorityLow:
		return "🔵"
	default:
		return "🟡"
	}
}

func formatWhen(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02.01.2006 15:04")
}

func formatClock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

// formatNotification renders the message the user receives when a reminder
// fires. HTML parse mode, title escaped.
func formatNotification(r storage.Reminder, pack *langPack) string {
	out := tgui.Hf("🔔 %s\n\n%s %s",
		tgui.B(pack.NotifyHeader), tgui.Raw(priorityEmoji(r.Priority)), tgui.B(r.Title))
	if r.Repeat != storage.RepeatNone {
		if name, ok := pack.RepeatNames[string(r.Repeat)]; ok {
			out += tgui.Hf("\n🔁 %s", tgui.Esc(name))
		}
	}
	return out.String()
}

func formatConfirm(r storage.Reminder, pack *langPack, loc *time.Location, lowConfidence bool) string {
	out := tgui.Hf("%s\n\n📝 %s\n⏰ %s",
		tgui.B(pack.ConfirmAsk), tgui.Esc(r.Title), tgui.Esc(formatWhen(r.RemindAt, loc)))
	if lowConfidence {
		out += tgui.Hf("\n\n%s", tgui.I(pack.LowConfHint))
	}
	return out.String()
}

func formatCreated(r storage.Reminder, pack *langPack, loc *time.Location) string {
	return tgui.Hf("%s: %s\n⏰ %s",
		tgui.Esc(pack.Created), tgui.B(r.Title), tgui.Esc(formatWhen(r.RemindAt, loc))).String()
}

func formatList(rs []storage.Reminder, pack *langPack, loc *time.Location) string {
	if len(rs) == 0 {
		return tgui.Esc(pack.ListEmpty).String()
	}
	parts := []tgui.H{tgui.B(pack.ListHeader), ""}
	for _, r := range rs {
		parts = append(parts, tgui.Hf("%s %s — %s",
			tgui.Raw(priorityEmoji(r.Priority)), tgui.Esc(formatWhen(r.RemindAt, loc)), tgui.Esc(r.Title)))
	}
	return tgui.Lines(parts...).String()
}

func formatToday(rs []storage.Reminder, pack *langPack, loc *time.Location) string {
	if len(rs) == 0 {
		return tgui.Esc(pack.TodayEmpty).String()
	}
	parts := []tgui.H{tgui.B(pack.TodayHeader), ""}
	for _, r := range rs {
		parts = append(parts, tgui.Hf("%s %s — %s",
			tgui.Raw(priorityEmoji(r.Priority)), tgui.Esc(formatClock(r.RemindAt, loc)), tgui.Esc(r.Title)))
	}
	return tgui.Lines(parts...).String()
}

func formatStats(s storage.Stats, pack *langPack) string {
	return fmt.Sprintf(pack.StatsTmpl, s.Active, s.Completed, s.Missed, s.Total)
}
