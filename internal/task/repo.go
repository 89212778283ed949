package task

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"visionark/internal/model"
)

var (
	ErrNotFound          = errors.New("task not found")
	ErrExceptionNotFound = errors.New("exception not found")
	ErrDuplicateDate     = errors.New("exception already exists for task and date")
)

// Patch represents a partial update.
// nil pointer => "no change"
// a pointer to a zero Date clears that date field.
type Patch struct {
	Name          *string         `json:"task_name,omitempty"`
	Context       *string         `json:"context,omitempty"`
	BaseLoadScore *float64        `json:"base_load_score,omitempty"`
	Active        *bool           `json:"active,omitempty"`
	RuleType      *model.RuleType `json:"rule_type,omitempty"`

	DueDate *model.Date `json:"due_date,omitempty"`

	Mon *bool `json:"mon,omitempty"`
	Tue *bool `json:"tue,omitempty"`
	Wed *bool `json:"wed,omitempty"`
	Thu *bool `json:"thu,omitempty"`
	Fri *bool `json:"fri,omitempty"`
	Sat *bool `json:"sat,omitempty"`
	Sun *bool `json:"sun,omitempty"`

	IntervalDays *int        `json:"interval_days,omitempty"`
	AnchorDate   *model.Date `json:"anchor_date,omitempty"`

	MonthDay    *int `json:"month_day,omitempty"`
	NthInMonth  *int `json:"nth_in_month,omitempty"`
	WeekdayMon1 *int `json:"weekday_mon1,omitempty"`

	StartDate *model.Date `json:"start_date,omitempty"`
	EndDate   *model.Date `json:"end_date,omitempty"`

	Notes *string `json:"notes,omitempty"`
}

type ListFilter struct {
	// Status: "" | "all" | "active" | "completed"
	Status string

	// Context: "" matches any context.
	Context string

	Limit  int
	Offset int
}

// Repo is the task catalog plus its owned exception table. Deleting a
// task cascades to its exceptions and cache rows; the cascade is
// explicit in each implementation, never implicit store magic.
type Repo interface {
	Create(t model.Task) (model.Task, error)
	Get(id model.TaskID) (model.Task, error)
	Update(id model.TaskID, patch Patch) (model.Task, error)
	Delete(id model.TaskID) error
	List(filter ListFilter) ([]model.Task, int, error)

	CreateException(exc model.TaskException) (model.TaskException, error)
	DeleteException(id int64) (model.TaskException, error)
	ListExceptions(taskID model.TaskID) ([]model.TaskException, error)
}

// NewTaskID mints an opaque catalog ID, e.g. "T-9f2c41aa".
func NewTaskID() model.TaskID {
	hexID := strings.ReplaceAll(uuid.NewString(), "-", "")
	return model.TaskID("T-" + hexID[:8])
}

// ApplyPatch mutates t in place. Shared by every Repo implementation so
// patch semantics cannot drift between stores.
func ApplyPatch(t *model.Task, p Patch) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Context != nil {
		t.Context = *p.Context
	}
	if p.BaseLoadScore != nil {
		t.BaseLoadScore = *p.BaseLoadScore
	}
	if p.Active != nil {
		t.Active = *p.Active
	}
	if p.RuleType != nil {
		t.RuleType = *p.RuleType
	}

	setDate(&t.DueDate, p.DueDate)
	setDate(&t.AnchorDate, p.AnchorDate)
	setDate(&t.StartDate, p.StartDate)
	setDate(&t.EndDate, p.EndDate)

	if p.Mon != nil {
		t.Mon = *p.Mon
	}
	if p.Tue != nil {
		t.Tue = *p.Tue
	}
	if p.Wed != nil {
		t.Wed = *p.Wed
	}
	if p.Thu != nil {
		t.Thu = *p.Thu
	}
	if p.Fri != nil {
		t.Fri = *p.Fri
	}
	if p.Sat != nil {
		t.Sat = *p.Sat
	}
	if p.Sun != nil {
		t.Sun = *p.Sun
	}

	if p.IntervalDays != nil {
		t.IntervalDays = *p.IntervalDays
	}
	if p.MonthDay != nil {
		t.MonthDay = *p.MonthDay
	}
	if p.NthInMonth != nil {
		t.NthInMonth = *p.NthInMonth
	}
	if p.WeekdayMon1 != nil {
		t.WeekdayMon1 = *p.WeekdayMon1
	}

	if p.Notes != nil {
		t.Notes = *p.Notes
	}
}

func setDate(dst **model.Date, src *model.Date) {
	if src == nil {
		return
	}
	if src.IsZero() {
		*dst = nil
		return
	}
	d := *src
	*dst = &d
}

// ExpandSpan picks the date range to re-expand after a catalog change:
// the task's own validity window when present, its due date for ONCE
// tasks, and otherwise today through today+horizonDays.
func ExpandSpan(t model.Task, today model.Date, horizonDays int) (model.Date, model.Date) {
	start := today
	if t.StartDate != nil {
		start = *t.StartDate
	} else if t.DueDate != nil {
		start = *t.DueDate
	}

	end := today.AddDays(horizonDays)
	if t.EndDate != nil {
		end = *t.EndDate
	} else if t.DueDate != nil {
		end = *t.DueDate
	}

	if end.Before(start) {
		end = start
	}
	return start, end
}

// MatchesFilter reports whether a task passes a catalog list filter.
func MatchesFilter(t model.Task, f ListFilter) bool {
	switch strings.ToLower(strings.TrimSpace(f.Status)) {
	case "", "all":
	case "active":
		if !t.Active {
			return false
		}
	case "completed":
		if t.Active {
			return false
		}
	}

	if f.Context != "" && t.Context != f.Context {
		return false
	}
	return true
}
