package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"visionark/internal/lbs"
	"visionark/internal/model"
	"visionark/internal/task"
)

func datePtr(s string) *model.Date {
	d := model.MustDate(s)
	return &d
}

func TestMemory_CreateAssignsID(t *testing.T) {
	mem := NewMemory()

	created, err := mem.Create(model.Task{Name: "a", RuleType: model.RuleWeekly})
	assert.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := mem.Get(created.ID)
	assert.NoError(t, err)
	assert.Equal(t, "a", got.Name)
}

func TestMemory_GetNotFound(t *testing.T) {
	mem := NewMemory()

	_, err := mem.Get("T-missing")
	assert.Equal(t, task.ErrNotFound, err)

	_, err = mem.TaskByID("T-missing")
	assert.Equal(t, lbs.ErrNotFound, err)
}

func TestMemory_DeleteCascades(t *testing.T) {
	mem := NewMemory()

	created, err := mem.Create(model.Task{Name: "a", Active: true, RuleType: model.RuleWeekly, Mon: true})
	assert.NoError(t, err)

	_, err = mem.CreateException(model.TaskException{
		TaskID:     created.ID,
		TargetDate: model.MustDate("2026-03-02"),
		Type:       model.ExceptionSkip,
	})
	assert.NoError(t, err)

	day := model.MustDate("2026-03-09")
	assert.NoError(t, mem.ReplaceOccurrences(day, day, []model.Occurrence{{
		TargetDate: day, TaskID: created.ID, CalculatedLoad: 1.0,
		RuleTypeSnapshot: model.RuleWeekly, Status: model.StatusPlanned,
	}}))

	assert.NoError(t, mem.Delete(created.ID))

	_, err = mem.Get(created.ID)
	assert.Equal(t, task.ErrNotFound, err)

	excs, err := mem.ListExceptions(created.ID)
	assert.NoError(t, err)
	assert.Empty(t, excs)

	rows, err := mem.OccurrencesOn(day)
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemory_ListSortsAndPages(t *testing.T) {
	mem := NewMemory()

	mk := func(name string, due *model.Date) {
		_, err := mem.Create(model.Task{Name: name, Active: true, RuleType: model.RuleOnce, DueDate: due})
		assert.NoError(t, err)
	}
	mk("no due b", nil)
	mk("no due a", nil)
	mk("late", datePtr("2026-04-01"))
	mk("early", datePtr("2026-03-01"))

	all, total, err := mem.List(task.ListFilter{})
	assert.NoError(t, err)
	assert.Equal(t, 4, total)

	names := make([]string, 0, len(all))
	for _, item := range all {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{"early", "late", "no due a", "no due b"}, names)

	page, total, err := mem.List(task.ListFilter{Limit: 2, Offset: 1})
	assert.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, page, 2)
	assert.Equal(t, "late", page[0].Name)
	assert.Equal(t, "no due a", page[1].Name)

	empty, total, err := mem.List(task.ListFilter{Offset: 10})
	assert.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, empty)
}

func TestMemory_ExceptionUniquePerDate(t *testing.T) {
	mem := NewMemory()

	created, err := mem.Create(model.Task{Name: "a", RuleType: model.RuleWeekly})
	assert.NoError(t, err)

	exc := model.TaskException{
		TaskID:     created.ID,
		TargetDate: model.MustDate("2026-03-02"),
		Type:       model.ExceptionSkip,
	}
	first, err := mem.CreateException(exc)
	assert.NoError(t, err)
	assert.NotZero(t, first.ID)

	_, err = mem.CreateException(exc)
	assert.Equal(t, task.ErrDuplicateDate, err)

	// Deleting frees the (task, date) slot.
	_, err = mem.DeleteException(first.ID)
	assert.NoError(t, err)
	_, err = mem.CreateException(exc)
	assert.NoError(t, err)
}

func TestMemory_ReplaceOccurrencesRebuildsRange(t *testing.T) {
	mem := NewMemory()

	day1 := model.MustDate("2026-03-01")
	day2 := model.MustDate("2026-03-02")
	outside := model.MustDate("2026-03-10")

	seedRows := []model.Occurrence{
		{TargetDate: day1, TaskID: "T-old", CalculatedLoad: 1, RuleTypeSnapshot: model.RuleWeekly, Status: model.StatusPlanned},
		{TargetDate: outside, TaskID: "T-keep", CalculatedLoad: 1, RuleTypeSnapshot: model.RuleWeekly, Status: model.StatusPlanned},
	}
	assert.NoError(t, mem.ReplaceOccurrences(day1, outside, seedRows))

	// Rebuild only the first two days with a different row set.
	assert.NoError(t, mem.ReplaceOccurrences(day1, day2, []model.Occurrence{
		{TargetDate: day2, TaskID: "T-new", CalculatedLoad: 2, RuleTypeSnapshot: model.RuleOnce, Status: model.StatusPlanned},
	}))

	rows, err := mem.OccurrencesOn(day1)
	assert.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = mem.OccurrencesOn(day2)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, model.TaskID("T-new"), rows[0].TaskID)

	// Rows outside the rebuilt range survive.
	rows, err = mem.OccurrencesOn(outside)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, model.TaskID("T-keep"), rows[0].TaskID)
}

func TestMemory_StampOverflow(t *testing.T) {
	mem := NewMemory()

	day := model.MustDate("2026-03-01")
	assert.NoError(t, mem.ReplaceOccurrences(day, day, []model.Occurrence{
		{TargetDate: day, TaskID: "T-a", CalculatedLoad: 5, RuleTypeSnapshot: model.RuleOnce, Status: model.StatusPlanned},
		{TargetDate: day, TaskID: "T-b", CalculatedLoad: 5, RuleTypeSnapshot: model.RuleOnce, Status: model.StatusPlanned},
	}))

	assert.NoError(t, mem.StampOverflow(day, true))

	rows, err := mem.OccurrencesOn(day)
	assert.NoError(t, err)
	for _, row := range rows {
		assert.True(t, row.IsOverflow)
	}

	assert.NoError(t, mem.StampOverflow(day, false))
	rows, err = mem.OccurrencesOn(day)
	assert.NoError(t, err)
	for _, row := range rows {
		assert.False(t, row.IsOverflow)
	}
}

func TestMemory_ExceptionFor(t *testing.T) {
	mem := NewMemory()

	created, err := mem.Create(model.Task{Name: "a", RuleType: model.RuleWeekly})
	assert.NoError(t, err)

	got, err := mem.ExceptionFor(created.ID, model.MustDate("2026-03-02"))
	assert.NoError(t, err)
	assert.Nil(t, got)

	override := 0.5
	_, err = mem.CreateException(model.TaskException{
		TaskID:            created.ID,
		TargetDate:        model.MustDate("2026-03-02"),
		Type:              model.ExceptionOverrideLoad,
		OverrideLoadValue: &override,
	})
	assert.NoError(t, err)

	got, err = mem.ExceptionFor(created.ID, model.MustDate("2026-03-02"))
	assert.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, model.ExceptionOverrideLoad, got.Type)
	assert.Equal(t, 0.5, *got.OverrideLoadValue)
}
