package lbs

import (
	"errors"

	"visionark/internal/model"
)

var ErrNotFound = errors.New("not found")

// Store is the engine's view of persistence. The expansion engine is
// the only writer of the occurrence cache; everything else is read-only
// here. Implementations must make ReplaceOccurrences atomic so a failed
// rebuild never leaves a half-written range.
type Store interface {
	ActiveTasks() ([]model.Task, error)
	TaskByID(id model.TaskID) (model.Task, error)

	// ExceptionFor returns the exception for the exact (task, date)
	// pair, or nil when none exists.
	ExceptionFor(id model.TaskID, day model.Date) (*model.TaskException, error)

	// ReplaceOccurrences deletes every cache row in [start, end] and
	// inserts rows in their place, as one atomic operation.
	ReplaceOccurrences(start, end model.Date, rows []model.Occurrence) error

	OccurrencesOn(day model.Date) ([]model.Occurrence, error)

	// StampOverflow sets the day-level overflow flag on every cache row
	// of the given date.
	StampOverflow(day model.Date, overflow bool) error
}
