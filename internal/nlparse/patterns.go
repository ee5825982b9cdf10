package nlparse

import "regexp"

// PatternSet is the per-locale regexp table the parser matches against.
// Every pattern captures the temporal token as group 1 (the substring that
// gets stripped from the title); numeric payloads follow in groups 2+.
// Adding a locale means adding a table here, never touching the algorithm.
type PatternSet struct {
	Locale string

	// Relative offsets: "через N минут" / "in N minutes". Group 2 is N.
	InMinutes *regexp.Regexp
	InHours   *regexp.Regexp
	InDays    *regexp.Regexp

	Today    *regexp.Regexp
	Tomorrow *regexp.Regexp
	// AfterTomorrow is nil for locales without a single-word form.
	AfterTomorrow *regexp.Regexp

	// Weekdays indexed 0=Monday .. 6=Sunday.
	Weekdays [7]*regexp.Regexp

	// Date matches D.M or D.M.Y; groups 2=day, 3=month, 4=year.
	Date *regexp.Regexp

	// Clock matches "в 15:30" / "at 7 pm"; groups 2=hour, 3=minutes,
	// 4=meridiem. Minutes and meridiem are optional: the parser grades a
	// bare hour lower than an explicit H:MM.
	Clock *regexp.Regexp

	// DayParts indexed morning, afternoon, evening, night.
	DayParts [4]*regexp.Regexp

	LeadingConnector  *regexp.Regexp
	TrailingConnector *regexp.Regexp
}

const (
	dayPartMorning = iota
	dayPartAfternoon
	dayPartEvening
	dayPartNight
)

var dayPartHours = [4]int{9, 14, 19, 22}

// ruWord wraps a Cyrillic token with non-letter boundaries. Go's \b only
// understands ASCII word characters, so \bзавтра\b would never match.
func ruWord(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|\P{L})(` + expr + `)(?:\P{L}|$)`)
}

func enWord(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(` + expr + `)(?:[^a-z0-9]|$)`)
}

var dateRe = regexp.MustCompile(`((\d{1,2})[./](\d{1,2})(?:[./](\d{2,4}))?)`)

func russianPatterns() *PatternSet {
	return &PatternSet{
		Locale: "ru",

		InMinutes: regexp.MustCompile(`(?i)(через\s+(\d+)\s*мин(?:ут[уы]?)?)`),
		InHours:   regexp.MustCompile(`(?i)(через\s+(\d+)\s*час(?:а|ов)?)`),
		InDays:    regexp.MustCompile(`(?i)(через\s+(\d+)\s*(?:день|дня|дней))`),

		Today:         ruWord(`сегодня`),
		Tomorrow:      ruWord(`завтра`),
		AfterTomorrow: ruWord(`послезавтра`),

		Weekdays: [7]*regexp.Regexp{
			ruWord(`(?:во?\s+)?понедельник`),
			ruWord(`(?:во?\s+)?вторник`),
			ruWord(`(?:во?\s+)?сред[ау]`),
			ruWord(`(?:во?\s+)?четверг`),
			ruWord(`(?:во?\s+)?пятниц[ау]`),
			ruWord(`(?:во?\s+)?суббот[ау]`),
			ruWord(`(?:во?\s+)?воскресенье`),
		},

		Date: dateRe,

		Clock: regexp.MustCompile(`(?i)(?:^|\P{L})(в\s+(\d{1,2})(?:[:.](\d{2}))?(?:\s*(am|pm))?(?:\s*час(?:а|ов)?)?)(?:[^\p{L}\d]|$)`),

		DayParts: [4]*regexp.Regexp{
			ruWord(`утром?|с\s*утра`),
			ruWord(`дн[её]м|после\s*обеда`),
			ruWord(`вечером?`),
			ruWord(`ночью?`),
		},

		LeadingConnector:  regexp.MustCompile(`(?i)^(?:во?|на|к|о|об|про)\s+`),
		TrailingConnector: regexp.MustCompile(`(?i)\s+(?:во?|на|к|о|об|про)$`),
	}
}

func englishPatterns() *PatternSet {
	return &PatternSet{
		Locale: "en",

		InMinutes: regexp.MustCompile(`(?i)(in\s+(\d+)\s*min(?:ute)?s?)`),
		InHours:   regexp.MustCompile(`(?i)(in\s+(\d+)\s*hours?)`),
		InDays:    regexp.MustCompile(`(?i)(in\s+(\d+)\s*days?)`),

		Today:    enWord(`today`),
		Tomorrow: enWord(`tomorrow`),

		Weekdays: [7]*regexp.Regexp{
			enWord(`(?:on\s+)?monday`),
			enWord(`(?:on\s+)?tuesday`),
			enWord(`(?:on\s+)?wednesday`),
			enWord(`(?:on\s+)?thursday`),
			enWord(`(?:on\s+)?friday`),
			enWord(`(?:on\s+)?saturday`),
			enWord(`(?:on\s+)?sunday`),
		},

		Date: dateRe,

		Clock: regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(at\s+(\d{1,2})(?:[:.](\d{2}))?(?:\s*(am|pm))?)(?:[^a-z0-9]|$)`),

		DayParts: [4]*regexp.Regexp{
			enWord(`(?:in\s+the\s+)?morning`),
			enWord(`(?:in\s+the\s+)?afternoon`),
			enWord(`(?:in\s+the\s+)?evening`),
			enWord(`(?:at\s+)?night`),
		},

		LeadingConnector:  regexp.MustCompile(`(?i)^(?:at|on|in|for|to|the)\s+`),
		TrailingConnector: regexp.MustCompile(`(?i)\s+(?:at|on|in|for|to|the)$`),
	}
}

var patternSets = map[string]*PatternSet{
	"ru": russianPatterns(),
	"en": englishPatterns(),
}

// ForLocale returns the pattern table for a locale code.
// Unknown locales fall back to English.
func ForLocale(code string) *PatternSet {
	if ps, ok := patternSets[code]; ok {
		return ps
	}
	return patternSets["en"]
}

// findToken runs re against text and returns the temporal token (group 1,
// or the whole match when the pattern has no groups).
func findToken(re *regexp.Regexp, text string) (string, []string, bool) {
	if re == nil {
		return "", nil, false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", nil, false
	}
	if len(m) > 1 && m[1] != "" {
		return m[1], m, true
	}
	return m[0], m, true
}
