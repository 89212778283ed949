package lbs_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"visionark/internal/config"
	"visionark/internal/lbs"
	"visionark/internal/model"
	"visionark/internal/store"
	"visionark/internal/task"
)

func newTestEngine(t *testing.T) (*lbs.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return lbs.New(mem, config.DefaultEngine()), mem
}

func mustCreate(t *testing.T, mem *store.Memory, tk model.Task) model.Task {
	t.Helper()
	tk.Active = true
	created, err := mem.Create(tk)
	assert.NoError(t, err)
	return created
}

func dateRef(s string) *model.Date {
	d := model.MustDate(s)
	return &d
}

func TestExpand_WritesMatchingOccurrences(t *testing.T) {
	engine, mem := newTestEngine(t)

	daily := mustCreate(t, mem, model.Task{
		Name:          "daily",
		BaseLoadScore: 1.0,
		RuleType:      model.RuleEveryNDays,
		IntervalDays:  1,
		AnchorDate:    dateRef("2026-03-01"),
	})
	once := mustCreate(t, mem, model.Task{
		Name:          "deadline",
		BaseLoadScore: 3.0,
		RuleType:      model.RuleOnce,
		DueDate:       dateRef("2026-03-03"),
	})

	assert.NoError(t, engine.Expand(model.MustDate("2026-03-01"), model.MustDate("2026-03-05")))

	rows, err := mem.OccurrencesOn(model.MustDate("2026-03-03"))
	assert.NoError(t, err)
	assert.Len(t, rows, 2)

	byTask := map[model.TaskID]model.Occurrence{}
	for _, row := range rows {
		byTask[row.TaskID] = row
	}
	assert.Equal(t, 1.0, byTask[daily.ID].CalculatedLoad)
	assert.Equal(t, model.RuleEveryNDays, byTask[daily.ID].RuleTypeSnapshot)
	assert.Equal(t, 3.0, byTask[once.ID].CalculatedLoad)
	assert.Equal(t, model.StatusPlanned, byTask[once.ID].Status)

	rows, err = mem.OccurrencesOn(model.MustDate("2026-03-04"))
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, daily.ID, rows[0].TaskID)
}

func TestExpand_IgnoresInactiveTasks(t *testing.T) {
	engine, mem := newTestEngine(t)

	paused := mustCreate(t, mem, model.Task{
		Name:          "paused",
		BaseLoadScore: 1.0,
		RuleType:      model.RuleEveryNDays,
		IntervalDays:  1,
		AnchorDate:    dateRef("2026-03-01"),
	})
	inactive := false
	_, err := mem.Update(paused.ID, task.Patch{Active: &inactive})
	assert.NoError(t, err)

	assert.NoError(t, engine.Expand(model.MustDate("2026-03-01"), model.MustDate("2026-03-03")))

	rows, err := mem.OccurrencesOn(model.MustDate("2026-03-02"))
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExpand_SkipExceptionRemovesRow(t *testing.T) {
	engine, mem := newTestEngine(t)

	created := mustCreate(t, mem, model.Task{
		Name:          "daily",
		BaseLoadScore: 1.0,
		RuleType:      model.RuleEveryNDays,
		IntervalDays:  1,
		AnchorDate:    dateRef("2026-03-01"),
	})
	_, err := mem.CreateException(model.TaskException{
		TaskID:     created.ID,
		TargetDate: model.MustDate("2026-03-02"),
		Type:       model.ExceptionSkip,
	})
	assert.NoError(t, err)

	assert.NoError(t, engine.Expand(model.MustDate("2026-03-01"), model.MustDate("2026-03-03")))

	rows, err := mem.OccurrencesOn(model.MustDate("2026-03-02"))
	assert.NoError(t, err)
	assert.Empty(t, rows)

	// Neighboring days are untouched.
	rows, err = mem.OccurrencesOn(model.MustDate("2026-03-01"))
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	rows, err = mem.OccurrencesOn(model.MustDate("2026-03-03"))
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExpand_OverrideLoadChangesOnlyLoad(t *testing.T) {
	engine, mem := newTestEngine(t)

	created := mustCreate(t, mem, model.Task{
		Name:          "daily",
		BaseLoadScore: 2.0,
		RuleType:      model.RuleEveryNDays,
		IntervalDays:  1,
		AnchorDate:    dateRef("2026-03-01"),
	})
	override := 0.5
	_, err := mem.CreateException(model.TaskException{
		TaskID:            created.ID,
		TargetDate:        model.MustDate("2026-03-02"),
		Type:              model.ExceptionOverrideLoad,
		OverrideLoadValue: &override,
	})
	assert.NoError(t, err)

	assert.NoError(t, engine.Expand(model.MustDate("2026-03-01"), model.MustDate("2026-03-03")))

	rows, err := mem.OccurrencesOn(model.MustDate("2026-03-02"))
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 0.5, rows[0].CalculatedLoad)
	assert.Equal(t, model.StatusPlanned, rows[0].Status)

	rows, err = mem.OccurrencesOn(model.MustDate("2026-03-01"))
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2.0, rows[0].CalculatedLoad)
}

func TestExpand_Idempotent(t *testing.T) {
	engine, mem := newTestEngine(t)

	mustCreate(t, mem, model.Task{
		Name:          "daily",
		BaseLoadScore: 1.0,
		RuleType:      model.RuleEveryNDays,
		IntervalDays:  1,
		AnchorDate:    dateRef("2026-03-01"),
	})

	start, end := model.MustDate("2026-03-01"), model.MustDate("2026-03-05")
	assert.NoError(t, engine.Expand(start, end))
	assert.NoError(t, engine.Expand(start, end))
	assert.NoError(t, engine.Expand(start, end))

	for day := start; !day.After(end); day = day.AddDays(1) {
		rows, err := mem.OccurrencesOn(day)
		assert.NoError(t, err)
		assert.Len(t, rows, 1, "day %s", day)
	}
}

func TestExpand_RemovesStaleRowsAfterRuleChange(t *testing.T) {
	engine, mem := newTestEngine(t)

	created := mustCreate(t, mem, model.Task{
		Name:          "was daily",
		BaseLoadScore: 1.0,
		RuleType:      model.RuleEveryNDays,
		IntervalDays:  1,
		AnchorDate:    dateRef("2026-03-01"),
	})

	start, end := model.MustDate("2026-03-01"), model.MustDate("2026-03-07")
	assert.NoError(t, engine.Expand(start, end))

	// Narrow the rule to Mondays only; the rebuild must drop the rest.
	weekly := model.RuleWeekly
	mon := true
	_, err := mem.Update(created.ID, task.Patch{RuleType: &weekly, Mon: &mon})
	assert.NoError(t, err)
	assert.NoError(t, engine.Expand(start, end))

	for day := start; !day.After(end); day = day.AddDays(1) {
		rows, err := mem.OccurrencesOn(day)
		assert.NoError(t, err)
		if day.WeekdayMon0() == 0 {
			assert.Len(t, rows, 1, "day %s", day)
		} else {
			assert.Empty(t, rows, "day %s", day)
		}
	}
}

func TestExpand_RejectsBadRange(t *testing.T) {
	engine, _ := newTestEngine(t)

	assert.Error(t, engine.Expand(model.Date{}, model.MustDate("2026-03-05")))
	assert.Error(t, engine.Expand(model.MustDate("2026-03-05"), model.Date{}))
	assert.Error(t, engine.Expand(model.MustDate("2026-03-05"), model.MustDate("2026-03-01")))
}

func TestExpand_SingleDayRange(t *testing.T) {
	engine, mem := newTestEngine(t)

	mustCreate(t, mem, model.Task{
		Name:          "daily",
		BaseLoadScore: 1.0,
		RuleType:      model.RuleEveryNDays,
		IntervalDays:  1,
		AnchorDate:    dateRef("2026-03-01"),
	})

	day := model.MustDate("2026-03-02")
	assert.NoError(t, engine.Expand(day, day))

	rows, err := mem.OccurrencesOn(day)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExpand_StampsOverflow(t *testing.T) {
	engine, mem := newTestEngine(t)

	// Two heavy tasks push the adjusted load past the default cap of 8.
	mustCreate(t, mem, model.Task{
		Name: "heavy a", Context: "work", BaseLoadScore: 5.0,
		RuleType: model.RuleEveryNDays, IntervalDays: 1, AnchorDate: dateRef("2026-03-01"),
	})
	mustCreate(t, mem, model.Task{
		Name: "heavy b", Context: "home", BaseLoadScore: 5.0,
		RuleType: model.RuleOnce, DueDate: dateRef("2026-03-02"),
	})

	assert.NoError(t, engine.Expand(model.MustDate("2026-03-01"), model.MustDate("2026-03-03")))

	overloaded, err := mem.OccurrencesOn(model.MustDate("2026-03-02"))
	assert.NoError(t, err)
	assert.Len(t, overloaded, 2)
	for _, row := range overloaded {
		assert.True(t, row.IsOverflow)
	}

	calm, err := mem.OccurrencesOn(model.MustDate("2026-03-01"))
	assert.NoError(t, err)
	assert.Len(t, calm, 1)
	assert.False(t, calm[0].IsOverflow)
}

func TestExpand_ConcurrentCallsConverge(t *testing.T) {
	engine, mem := newTestEngine(t)

	mustCreate(t, mem, model.Task{
		Name:          "daily",
		BaseLoadScore: 1.0,
		RuleType:      model.RuleEveryNDays,
		IntervalDays:  1,
		AnchorDate:    dateRef("2026-03-01"),
	})

	start, end := model.MustDate("2026-03-01"), model.MustDate("2026-03-10")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, engine.Expand(start, end))
		}()
	}
	wg.Wait()

	// Serialized rebuilds over the same range leave exactly one row per day.
	for day := start; !day.After(end); day = day.AddDays(1) {
		rows, err := mem.OccurrencesOn(day)
		assert.NoError(t, err)
		assert.Len(t, rows, 1, "day %s", day)
	}
}

func TestTasksForDate_JoinsCacheToCatalog(t *testing.T) {
	engine, mem := newTestEngine(t)

	created := mustCreate(t, mem, model.Task{
		Name:          "deadline",
		BaseLoadScore: 1.0,
		RuleType:      model.RuleOnce,
		DueDate:       dateRef("2026-03-02"),
	})

	assert.NoError(t, engine.Expand(model.MustDate("2026-03-01"), model.MustDate("2026-03-03")))

	tasks, err := engine.TasksForDate(model.MustDate("2026-03-02"))
	assert.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, created.ID, tasks[0].ID)
	assert.Equal(t, "deadline", tasks[0].Name)

	tasks, err = engine.TasksForDate(model.MustDate("2026-03-01"))
	assert.NoError(t, err)
	assert.Empty(t, tasks)
}
