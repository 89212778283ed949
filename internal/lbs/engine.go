package lbs

import (
	"fmt"
	"sync"

	"visionark/internal/config"
	"visionark/internal/model"
)

// Engine expands recurrence rules into the daily occurrence cache and
// computes load figures over it. Config is snapshotted at construction
// and immutable for the engine's lifetime; build a new engine to pick
// up config changes.
type Engine struct {
	mu    sync.Mutex
	store Store
	cfg   config.Engine
}

// New snapshots cfg exactly as given. Defaulting happens in the config
// constructors (Default, Load, EngineFromMap); an explicit zero scalar
// is a valid setting here, e.g. SwitchCost 0 disables the context
// penalty.
func New(store Store, cfg config.Engine) *Engine {
	return &Engine{store: store, cfg: cfg}
}

func (e *Engine) Config() config.Engine { return e.cfg }

// Expand rebuilds every occurrence in [start, end] inclusive: a full
// delete-then-insert of the range, never an incremental patch. The
// engine serializes Expand calls so overlapping rebuilds cannot
// interleave; the store keeps each rebuild atomic on top of that.
func (e *Engine) Expand(start, end model.Date) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("expand: start and end are required")
	}
	if end.Before(start) {
		return fmt.Errorf("expand: end %s before start %s", end, start)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tasks, err := e.store.ActiveTasks()
	if err != nil {
		return fmt.Errorf("expand: load tasks: %w", err)
	}

	var rows []model.Occurrence
	for day := start; !day.After(end); day = day.AddDays(1) {
		for _, t := range tasks {
			if !OccursOn(t, day) {
				continue
			}

			exc, err := e.store.ExceptionFor(t.ID, day)
			if err != nil {
				return fmt.Errorf("expand: exception lookup %s@%s: %w", t.ID, day, err)
			}
			if exc != nil && exc.Type == model.ExceptionSkip {
				continue
			}

			load := t.BaseLoadScore
			if exc != nil && exc.Type == model.ExceptionOverrideLoad && exc.OverrideLoadValue != nil {
				load = *exc.OverrideLoadValue
			}

			rows = append(rows, model.Occurrence{
				TargetDate:       day,
				TaskID:           t.ID,
				CalculatedLoad:   load,
				RuleTypeSnapshot: t.RuleType,
				Status:           model.StatusPlanned,
			})
		}
	}

	if err := e.store.ReplaceOccurrences(start, end, rows); err != nil {
		return fmt.Errorf("expand: rewrite cache: %w", err)
	}

	return e.stampOverflow(start, end)
}

// stampOverflow recomputes the aggregate per date and duplicates the
// day-level overflow flag onto every row of that date.
func (e *Engine) stampOverflow(start, end model.Date) error {
	for day := start; !day.After(end); day = day.AddDays(1) {
		daily, err := e.DailyLoad(day)
		if err != nil {
			return fmt.Errorf("expand: overflow for %s: %w", day, err)
		}
		if err := e.store.StampOverflow(day, daily.AdjustedLoad > e.cfg.Cap); err != nil {
			return fmt.Errorf("expand: stamp overflow %s: %w", day, err)
		}
	}
	return nil
}

// TasksForDate joins the day's cache rows back to task metadata.
func (e *Engine) TasksForDate(day model.Date) ([]model.Task, error) {
	rows, err := e.store.OccurrencesOn(day)
	if err != nil {
		return nil, err
	}

	out := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		t, err := e.store.TaskByID(row.TaskID)
		if err == ErrNotFound {
			// Stale cache row whose task is gone; skip it.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
