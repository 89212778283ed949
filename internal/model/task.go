package model

import (
	"time"
)

type TaskID string

// RuleType is the recurrence pattern governing when a task's occurrences fall.
type RuleType string

const (
	RuleOnce              RuleType = "ONCE"
	RuleWeekly            RuleType = "WEEKLY"
	RuleEveryNDays        RuleType = "EVERY_N_DAYS"
	RuleMonthlyDay        RuleType = "MONTHLY_DAY"
	RuleMonthlyNthWeekday RuleType = "MONTHLY_NTH_WEEKDAY"
)

func (r RuleType) Valid() bool {
	switch r {
	case RuleOnce, RuleWeekly, RuleEveryNDays, RuleMonthlyDay, RuleMonthlyNthWeekday:
		return true
	}
	return false
}

// Task is a recurrence rule plus metadata. Only the parameter subset
// matching RuleType is meaningful; the rest is ignored by the matcher.
type Task struct {
	ID            TaskID  `json:"task_id"`
	Name          string  `json:"task_name"`
	Context       string  `json:"context"`
	BaseLoadScore float64 `json:"base_load_score"`
	Active        bool    `json:"active"`

	RuleType RuleType `json:"rule_type"`

	// ONCE
	DueDate *Date `json:"due_date,omitempty"`

	// WEEKLY, Monday first
	Mon bool `json:"mon"`
	Tue bool `json:"tue"`
	Wed bool `json:"wed"`
	Thu bool `json:"thu"`
	Fri bool `json:"fri"`
	Sat bool `json:"sat"`
	Sun bool `json:"sun"`

	// EVERY_N_DAYS
	IntervalDays int   `json:"interval_days,omitempty"`
	AnchorDate   *Date `json:"anchor_date,omitempty"`

	// MONTHLY_DAY
	MonthDay int `json:"month_day,omitempty"`

	// MONTHLY_NTH_WEEKDAY; NthInMonth -1 means "last"
	NthInMonth  int `json:"nth_in_month,omitempty"`
	WeekdayMon1 int `json:"weekday_mon1,omitempty"`

	// Validity window bounding rule eligibility, independent of rule dates.
	StartDate *Date `json:"start_date,omitempty"`
	EndDate   *Date `json:"end_date,omitempty"`

	Notes string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WeekdayFlags returns the seven weekday flags Monday-first.
func (t Task) WeekdayFlags() [7]bool {
	return [7]bool{t.Mon, t.Tue, t.Wed, t.Thu, t.Fri, t.Sat, t.Sun}
}

type ExceptionType string

const (
	ExceptionSkip         ExceptionType = "SKIP"
	ExceptionOverrideLoad ExceptionType = "OVERRIDE_LOAD"

	// ExceptionForceDo is accepted and stored but has no effect on
	// expansion beyond being a non-skip exception.
	ExceptionForceDo ExceptionType = "FORCE_DO"
)

func (e ExceptionType) Valid() bool {
	switch e {
	case ExceptionSkip, ExceptionOverrideLoad, ExceptionForceDo:
		return true
	}
	return false
}

// TaskException is a point override keyed by (task, date). Exceptions
// never widen the matcher's result; they only modify or suppress dates
// the rule already selected.
type TaskException struct {
	ID                int64         `json:"id"`
	TaskID            TaskID        `json:"task_id"`
	TargetDate        Date          `json:"target_date"`
	Type              ExceptionType `json:"exception_type"`
	OverrideLoadValue *float64      `json:"override_load_value,omitempty"`
	Notes             string        `json:"notes,omitempty"`
}
