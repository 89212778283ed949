package model

type OccurrenceStatus string

const (
	StatusPlanned   OccurrenceStatus = "planned"
	StatusCompleted OccurrenceStatus = "completed"
	StatusSkipped   OccurrenceStatus = "skipped"
)

// Occurrence is one materialized instance of a task on a date, the unit
// of the daily cache. For any (task, date) pair at most one row exists,
// and only when the rule matches and no SKIP exception applies.
type Occurrence struct {
	TargetDate       Date             `json:"target_date"`
	TaskID           TaskID           `json:"task_id"`
	CalculatedLoad   float64          `json:"calculated_load"`
	RuleTypeSnapshot RuleType         `json:"rule_type_snapshot"`
	Status           OccurrenceStatus `json:"status"`
	IsOverflow       bool             `json:"is_overflow"`
}
