package recurrence

import (
	"testing"
	"time"

	"github.com/matveystarhook/MLotify/internal/storage"
)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestNext(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		current time.Time
		rule    Rule
		want    time.Time
		ok      bool
	}{
		{
			name:    "daily",
			current: at(2024, time.March, 10, 9, 30),
			rule:    Rule{Kind: storage.RepeatDaily},
			want:    at(2024, time.March, 11, 9, 30),
			ok:      true,
		},
		{
			name:    "weekly",
			current: at(2024, time.March, 10, 9, 30),
			rule:    Rule{Kind: storage.RepeatWeekly},
			want:    at(2024, time.March, 17, 9, 30),
			ok:      true,
		},
		{
			name:    "monthly plain",
			current: at(2024, time.April, 15, 8, 0),
			rule:    Rule{Kind: storage.RepeatMonthly},
			want:    at(2024, time.May, 15, 8, 0),
			ok:      true,
		},
		{
			name:    "monthly clamps to leap february",
			current: at(2024, time.January, 31, 10, 0),
			rule:    Rule{Kind: storage.RepeatMonthly},
			want:    at(2024, time.February, 29, 10, 0),
			ok:      true,
		},
		{
			name:    "monthly clamps to short february",
			current: at(2023, time.January, 31, 10, 0),
			rule:    Rule{Kind: storage.RepeatMonthly},
			want:    at(2023, time.February, 28, 10, 0),
			ok:      true,
		},
		{
			name:    "monthly december wraps the year",
			current: at(2024, time.December, 31, 10, 0),
			rule:    Rule{Kind: storage.RepeatMonthly},
			want:    at(2025, time.January, 31, 10, 0),
			ok:      true,
		},
		{
			// 2024-03-08 is a Friday; next working day is Monday.
			name:    "weekdays skip the weekend",
			current: at(2024, time.March, 8, 9, 0),
			rule:    Rule{Kind: storage.RepeatWeekdays},
			want:    at(2024, time.March, 11, 9, 0),
			ok:      true,
		},
		{
			// 2024-03-11 is a Monday; set is Mon/Wed/Fri.
			name:    "custom picks the next allowed weekday",
			current: at(2024, time.March, 11, 18, 0),
			rule:    Rule{Kind: storage.RepeatCustom, Days: []int{0, 2, 4}},
			want:    at(2024, time.March, 13, 18, 0),
			ok:      true,
		},
		{
			name:    "custom single day comes back in a week",
			current: at(2024, time.March, 11, 18, 0),
			rule:    Rule{Kind: storage.RepeatCustom, Days: []int{0}},
			want:    at(2024, time.March, 18, 18, 0),
			ok:      true,
		},
		{
			name:    "custom with empty day set ends",
			current: at(2024, time.March, 11, 18, 0),
			rule:    Rule{Kind: storage.RepeatCustom},
			ok:      false,
		},
		{
			name:    "none never repeats",
			current: at(2024, time.March, 11, 18, 0),
			rule:    Rule{Kind: storage.RepeatNone},
			ok:      false,
		},
		{
			name:    "end date stops the series",
			current: at(2024, time.March, 11, 18, 0),
			rule:    Rule{Kind: storage.RepeatDaily, End: at(2024, time.March, 12, 0, 0)},
			ok:      false,
		},
		{
			name:    "occurrence exactly on the end date survives",
			current: at(2024, time.March, 11, 18, 0),
			rule:    Rule{Kind: storage.RepeatDaily, End: at(2024, time.March, 12, 18, 0)},
			want:    at(2024, time.March, 12, 18, 0),
			ok:      true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Next(tt.current, tt.rule)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if !got.Equal(tt.want) {
				t.Fatalf("Next = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRuleOf(t *testing.T) {
	t.Parallel()
	end := at(2024, time.June, 1, 0, 0)
	r := storage.Reminder{
		Repeat:     storage.RepeatCustom,
		RepeatDays: []int{1, 3},
		RepeatEnd:  end,
	}
	rule := RuleOf(r)
	if rule.Kind != storage.RepeatCustom {
		t.Fatalf("Kind = %v, want custom", rule.Kind)
	}
	if len(rule.Days) != 2 || rule.Days[0] != 1 || rule.Days[1] != 3 {
		t.Fatalf("Days = %v, want [1 3]", rule.Days)
	}
	if !rule.End.Equal(end) {
		t.Fatalf("End = %v, want %v", rule.End, end)
	}
}
