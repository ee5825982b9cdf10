package bot

// langPack holds every user-visible string for one language. Lookup falls
// back to Russian, the original audience of the bot.
type langPack struct {
	Welcome      string
	Help         string
	NoTime       string
	ConfirmAsk   string
	LowConfHint  string
	Created      string
	Cancelled    string
	Expired      string
	ListHeader   string
	ListEmpty    string
	TodayHeader  string
	TodayEmpty   string
	StatsTmpl    string
	NotifyHeader string
	Completed    string
	Snoozed      string
	NotFound     string
	LangSet      string
	LangUsage    string
	TZSet        string
	TZUsage      string
	TZBad        string

	BtnConfirm  string
	BtnCancel   string
	BtnDone     string
	BtnSnooze15 string
	BtnSnooze1h string

	RepeatNames map[string]string
}

var langPacks = map[string]*langPack{
	"ru": {
		Welcome: "Привет! Я напомню о важном.\n\n" +
			"Просто напишите, что и когда: «позвонить маме завтра в 9» или «встреча через 2 часа».",
		Help: "Я понимаю естественный язык: «через 20 минут», «завтра в 15:30», «в пятницу вечером», «25.12 в 18:00».\n\n" +
			"Команды:\n/list — ближайшие напоминания\n/today — на сегодня\n/stats — статистика\n/lang ru|en — язык\n/tz Europe/Moscow — часовой пояс",
		NoTime:       "Не смог разобрать время. Напишите, например: «позвонить маме завтра в 9».",
		ConfirmAsk:   "Создать напоминание?",
		LowConfHint:  "Я не до конца уверен во времени — проверьте перед подтверждением.",
		Created:      "✅ Напоминание создано",
		Cancelled:    "Отменено.",
		Expired:      "Черновик устарел, отправьте текст ещё раз.",
		ListHeader:   "📋 Ближайшие напоминания:",
		ListEmpty:    "Активных напоминаний нет.",
		TodayHeader:  "📅 На сегодня:",
		TodayEmpty:   "На сегодня ничего не запланировано.",
		StatsTmpl:    "📊 Статистика\nАктивных: %d\nВыполнено: %d\nПропущено: %d\nВсего: %d",
		NotifyHeader: "Напоминание!",
		Completed:    "✅ Выполнено",
		Snoozed:      "⏰ Отложено до %s",
		NotFound:     "Напоминание не найдено (возможно, уже закрыто).",
		LangSet:      "Язык переключён на русский.",
		LangUsage:    "Использование: /lang ru|en",
		TZSet:        "Часовой пояс: %s",
		TZUsage:      "Использование: /tz Europe/Moscow",
		TZBad:        "Неизвестный часовой пояс: %s",

		BtnConfirm:  "✅ Создать",
		BtnCancel:   "❌ Отмена",
		BtnDone:     "✅ Выполнено",
		BtnSnooze15: "⏰ +15 мин",
		BtnSnooze1h: "⏰ +1 час",

		RepeatNames: map[string]string{
			"daily":    "каждый день",
			"weekly":   "каждую неделю",
			"monthly":  "каждый месяц",
			"weekdays": "по будням",
			"custom":   "по выбранным дням",
		},
	},
	"en": {
		Welcome: "Hi! I'll remind you about what matters.\n\n" +
			"Just tell me what and when: \"call mom tomorrow at 9\" or \"meeting in 2 hours\".",
		Help: "I understand natural language: \"in 20 minutes\", \"tomorrow at 15:30\", \"friday evening\", \"25.12 at 18:00\".\n\n" +
			"Commands:\n/list — upcoming reminders\n/today — today's reminders\n/stats — statistics\n/lang ru|en — language\n/tz Europe/London — timezone",
		NoTime:       "Couldn't figure out the time. Try something like: \"call mom tomorrow at 9\".",
		ConfirmAsk:   "Create this reminder?",
		LowConfHint:  "I'm not fully sure about the time — please double-check.",
		Created:      "✅ Reminder created",
		Cancelled:    "Cancelled.",
		Expired:      "That draft expired, please send the text again.",
		ListHeader:   "📋 Upcoming reminders:",
		ListEmpty:    "No active reminders.",
		TodayHeader:  "📅 Today:",
		TodayEmpty:   "Nothing scheduled for today.",
		StatsTmpl:    "📊 Stats\nActive: %d\nCompleted: %d\nMissed: %d\nTotal: %d",
		NotifyHeader: "Reminder!",
		Completed:    "✅ Done",
		Snoozed:      "⏰ Snoozed until %s",
		NotFound:     "Reminder not found (maybe already closed).",
		LangSet:      "Language switched to English.",
		LangUsage:    "Usage: /lang ru|en",
		TZSet:        "Timezone: %s",
		TZUsage:      "Usage: /tz Europe/London",
		TZBad:        "Unknown timezone: %s",

		BtnConfirm:  "✅ Create",
		BtnCancel:   "❌ Cancel",
		BtnDone:     "✅ Done",
		BtnSnooze15: "⏰ +15 min",
		BtnSnooze1h: "⏰ +1 hour",

		RepeatNames: map[string]string{
			"daily":    "every day",
			"weekly":   "every week",
			"monthly":  "every month",
			"weekdays": "on weekdays",
			"custom":   "on selected days",
		},
	},
}

func packFor(lang string) *langPack {
	if p, ok := langPacks[lang]; ok {
		return p
	}
	return langPacks["ru"]
}
