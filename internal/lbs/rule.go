package lbs

import (
	"visionark/internal/model"
)

// OccursOn reports whether a task's rule selects the given date.
// Deterministic and side-effect-free. Malformed or incomplete rule
// parameters degrade to "never occurs" so one bad task cannot break
// expansion for the rest.
func OccursOn(t model.Task, day model.Date) bool {
	// Validity window applies before any rule-specific check.
	if t.StartDate != nil && day.Before(*t.StartDate) {
		return false
	}
	if t.EndDate != nil && day.After(*t.EndDate) {
		return false
	}

	switch t.RuleType {
	case model.RuleOnce:
		return t.DueDate != nil && day.Equal(*t.DueDate)

	case model.RuleWeekly:
		flags := t.WeekdayFlags()
		return flags[day.WeekdayMon0()]

	case model.RuleEveryNDays:
		if t.AnchorDate == nil || t.IntervalDays <= 0 {
			return false
		}
		diff := day.DaysSince(*t.AnchorDate)
		return diff >= 0 && diff%t.IntervalDays == 0

	case model.RuleMonthlyDay:
		if t.MonthDay <= 0 {
			return false
		}
		// A day value beyond a short month clips to that month's last day.
		target := t.MonthDay
		if last := day.DaysInMonth(); target > last {
			target = last
		}
		return day.Day() == target

	case model.RuleMonthlyNthWeekday:
		if t.NthInMonth == 0 || t.WeekdayMon1 < 1 || t.WeekdayMon1 > 7 {
			return false
		}
		return isNthWeekday(day, t.NthInMonth, t.WeekdayMon1)
	}

	return false
}

// isNthWeekday reports whether day is the nth occurrence of weekdayMon1
// (1=Monday .. 7=Sunday) within its month. nth == -1 means "last".
func isNthWeekday(day model.Date, nth, weekdayMon1 int) bool {
	if day.WeekdayMon0() != weekdayMon1-1 {
		return false
	}

	if nth == -1 {
		// Last occurrence: adding 7 days crosses into the next month.
		return day.AddDays(7).Month() != day.Month()
	}

	ordinal := (day.Day()-1)/7 + 1
	return ordinal == nth
}
