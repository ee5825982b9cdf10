// Package recurrence computes follow-up occurrences of repeating reminders.
// Pure calendar arithmetic; no I/O.
package recurrence

import (
	"time"

	"github.com/matveystarhook/MLotify/internal/storage"
)

// Rule is the repetition policy read off a reminder.
type Rule struct {
	Kind storage.RepeatKind
	// Days holds weekday indices 0=Monday..6=Sunday; custom kind only.
	Days []int
	// End bounds the series; zero means unbounded.
	End time.Time
}

// RuleOf extracts the recurrence rule from a reminder snapshot.
func RuleOf(r storage.Reminder) Rule {
	return Rule{Kind: r.Repeat, Days: r.RepeatDays, End: r.RepeatEnd}
}

// Next returns the occurrence following current, or false when the series
// ends (non-repeating rule, exhausted custom set, or end date reached).
func Next(current time.Time, rule Rule) (time.Time, bool) {
	var next time.Time

	switch rule.Kind {
	case storage.RepeatDaily:
		next = current.AddDate(0, 0, 1)

	case storage.RepeatWeekly:
		next = current.AddDate(0, 0, 7)

	case storage.RepeatMonthly:
		next = addMonthClamped(current)

	case storage.RepeatWeekdays:
		next = current.AddDate(0, 0, 1)
		for isWeekend(next.Weekday()) {
			next = next.AddDate(0, 0, 1)
		}

	case storage.RepeatCustom:
		allowed := make(map[int]bool, len(rule.Days))
		for _, d := range rule.Days {
			allowed[d] = true
		}
		if len(allowed) == 0 {
			return time.Time{}, false
		}
		candidate := current.AddDate(0, 0, 1)
		found := false
		for i := 0; i < 7; i++ {
			if allowed[mondayIndex(candidate.Weekday())] {
				next = candidate
				found = true
				break
			}
			candidate = candidate.AddDate(0, 0, 1)
		}
		if !found {
			return time.Time{}, false
		}

	default:
		return time.Time{}, false
	}

	if !rule.End.IsZero() && next.After(rule.End) {
		return time.Time{}, false
	}
	return next, true
}

// addMonthClamped moves to the same day-of-month one month later, clamping
// to the last day when the target month is shorter (Jan 31 -> Feb 28/29).
func addMonthClamped(t time.Time) time.Time {
	year, month := t.Year(), t.Month()+1
	if month > time.December {
		month = time.January
		year++
	}
	day := t.Day()
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	h, m, s := t.Clock()
	return time.Date(year, month, day, h, m, s, t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isWeekend(wd time.Weekday) bool {
	return wd == time.Saturday || wd == time.Sunday
}

func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
