package model

// WarningLevel classifies a day's adjusted load against the capacity cap.
type WarningLevel string

const (
	LevelSafe     WarningLevel = "SAFE"
	LevelWarning  WarningLevel = "WARNING"
	LevelDanger   WarningLevel = "DANGER"
	LevelCritical WarningLevel = "CRITICAL"
)

// TaskLoad is one line of a day's per-task breakdown.
type TaskLoad struct {
	TaskID   TaskID           `json:"task_id"`
	TaskName string           `json:"task_name"`
	Context  string           `json:"context"`
	Load     float64          `json:"load"`
	Status   OccurrenceStatus `json:"status"`
}

// DailyLoad is the adjusted-load result for a single date.
type DailyLoad struct {
	Date           Date         `json:"date"`
	BaseLoad       float64      `json:"base_load"`
	TaskCount      int          `json:"task_count"`
	UniqueContexts int          `json:"unique_contexts"`
	CountPenalty   float64      `json:"count_penalty"`
	ContextPenalty float64      `json:"context_penalty"`
	AdjustedLoad   float64      `json:"adjusted_load"`
	Level          WarningLevel `json:"level"`
	Cap            float64      `json:"cap"`
	Tasks          []TaskLoad   `json:"tasks"`
}

// WeeklyStats is the 7-day rollup starting at StartDate.
type WeeklyStats struct {
	StartDate    Date      `json:"start_date"`
	EndDate      Date      `json:"end_date"`
	AverageLoad  float64   `json:"average_load"`
	OverDays     int       `json:"over_days"`
	RecoveryDays int       `json:"recovery_days"`
	RecoveryRate float64   `json:"recovery_rate"`
	DailyLoads   []float64 `json:"daily_loads"`
}
