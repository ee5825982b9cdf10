// Package nlparse extracts a reminder time from free-form text.
//
// Parsing is rule-based and deterministic: a fixed priority of regexp stages
// per locale, each with a heuristic confidence. No I/O, no shared state; a
// Parser is safe for concurrent use.
package nlparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Result is what a single parse yields. RemindAt is zero when no temporal
// expression was recognized; Confidence is zero exactly in that case.
type Result struct {
	// Title is the input with matched temporal fragments stripped.
	Title string
	// RemindAt is the candidate reminder time (zero if none found).
	RemindAt time.Time
	// IsRelative reports whether the time came from an offset expression
	// ("in 20 minutes") rather than a calendar one.
	IsRelative bool
	// Confidence in [0,1]; how certain the parser is it got the time right.
	Confidence float64
}

// Matched reports whether a time was extracted.
func (r Result) Matched() bool { return !r.RemindAt.IsZero() }

type Parser struct {
	loc  *time.Location
	pats *PatternSet
}

// New builds a parser for the given IANA timezone and locale code.
// An unknown locale falls back to English patterns.
func New(timezone, locale string) (*Parser, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &Parser{loc: loc, pats: ForLocale(locale)}, nil
}

// Parse extracts a time relative to the current moment.
func (p *Parser) Parse(text string) Result {
	return p.ParseAt(text, time.Now())
}

// ParseAt is Parse with an explicit reference "now" (tests, replays).
func (p *Parser) ParseAt(text string, now time.Time) Result {
	now = now.In(p.loc)
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{}
	}

	// Stage 1: relative offsets win outright.
	if at, conf, token, ok := p.relative(trimmed, now); ok {
		return Result{
			Title:      p.cleanTitle(trimmed, token),
			RemindAt:   at,
			IsRelative: true,
			Confidence: conf,
		}
	}

	// Stage 2: compose an explicit date and/or time of day.
	date, dateConf, dateTok, hasDate := p.extractDate(trimmed, now)
	hour, minute, timeConf, timeTok, hasTime := p.extractTime(trimmed)
	if !hasDate && !hasTime {
		return Result{Title: trimmed}
	}
	if !hasDate {
		y, m, d := now.Date()
		date = time.Date(y, m, d, 0, 0, 0, 0, p.loc)
	}
	if !hasTime {
		hour, minute = 12, 0 // noon default
	}

	at := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, p.loc)
	// "at 9" said at 09:30 means tomorrow morning. An explicitly dated
	// input may be intentionally in the past, so those are never shifted.
	if !at.After(now) && !hasDate {
		at = at.AddDate(0, 0, 1)
	}

	conf := dateConf
	if timeConf > conf {
		conf = timeConf
	}
	return Result{
		Title:      p.cleanTitle(trimmed, dateTok, timeTok),
		RemindAt:   at,
		Confidence: conf,
	}
}

func (p *Parser) relative(text string, now time.Time) (time.Time, float64, string, bool) {
	stages := []struct {
		re   *regexp.Regexp
		unit time.Duration
		conf float64
	}{
		{p.pats.InMinutes, time.Minute, 0.95},
		{p.pats.InHours, time.Hour, 0.95},
		{p.pats.InDays, 24 * time.Hour, 0.90},
	}
	for _, st := range stages {
		tok, m, ok := findToken(st.re, text)
		if !ok || len(m) < 3 {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		return now.Add(time.Duration(n) * st.unit), st.conf, tok, true
	}
	return time.Time{}, 0, "", false
}

// extractDate returns the target calendar day (midnight in the parser zone).
func (p *Parser) extractDate(text string, now time.Time) (time.Time, float64, string, bool) {
	day := func(offset int) time.Time {
		y, m, d := now.AddDate(0, 0, offset).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, p.loc)
	}

	if tok, _, ok := findToken(p.pats.Today, text); ok {
		return day(0), 0.95, tok, true
	}
	if tok, _, ok := findToken(p.pats.Tomorrow, text); ok {
		return day(1), 0.95, tok, true
	}
	if tok, _, ok := findToken(p.pats.AfterTomorrow, text); ok {
		return day(2), 0.95, tok, true
	}

	for idx, re := range p.pats.Weekdays {
		tok, _, ok := findToken(re, text)
		if !ok {
			continue
		}
		// Next occurrence strictly after today; same-or-earlier weekday
		// wraps a full week forward.
		ahead := idx - mondayIndex(now.Weekday())
		if ahead <= 0 {
			ahead += 7
		}
		return day(ahead), 0.85, tok, true
	}

	if tok, m, ok := findToken(p.pats.Date, text); ok && len(m) >= 5 {
		d, _ := strconv.Atoi(m[2])
		mo, _ := strconv.Atoi(m[3])
		y := now.Year()
		if m[4] != "" {
			y, _ = strconv.Atoi(m[4])
			if y < 100 {
				y += 2000
			}
		}
		if validDate(y, mo, d) {
			return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, p.loc), 0.90, tok, true
		}
	}

	return time.Time{}, 0, "", false
}

func (p *Parser) extractTime(text string) (hour, minute int, conf float64, token string, ok bool) {
	if tok, m, found := findToken(p.pats.Clock, text); found && len(m) >= 5 {
		h, err := strconv.Atoi(m[2])
		if err == nil {
			mm := 0
			if m[3] != "" {
				mm, _ = strconv.Atoi(m[3])
			}
			meridiem := strings.ToLower(m[4])
			if meridiem == "pm" && h < 12 {
				h += 12
			}
			if h >= 0 && h <= 23 && mm >= 0 && mm <= 59 {
				c := 0.85 // bare hour
				if m[3] != "" || meridiem != "" {
					c = 0.95 // explicit H:MM or meridiem-qualified hour
				}
				return h, mm, c, tok, true
			}
		}
	}

	for idx, re := range p.pats.DayParts {
		if tok, _, found := findToken(re, text); found {
			return dayPartHours[idx], 0, 0.70, tok, true
		}
	}
	return 0, 0, 0, "", false
}

var spaceRun = regexp.MustCompile(`\s+`)

// cleanTitle strips the matched temporal tokens from the original text,
// drops dangling connector words and collapses whitespace. An empty result
// falls back to the original text.
func (p *Parser) cleanTitle(original string, tokens ...string) string {
	result := original
	for _, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(tok))
		if err != nil {
			continue
		}
		result = re.ReplaceAllString(result, " ")
	}
	result = strings.TrimSpace(spaceRun.ReplaceAllString(result, " "))
	result = p.pats.LeadingConnector.ReplaceAllString(result, "")
	result = p.pats.TrailingConnector.ReplaceAllString(result, "")
	result = strings.TrimSpace(result)
	if result == "" {
		return strings.TrimSpace(original)
	}
	return result
}

// mondayIndex converts Go's Sunday-based weekday to the 0=Monday..6=Sunday
// convention used by recurrence rules and the pattern tables.
func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}
