package store

import (
	"sort"
	"sync"
	"time"

	"visionark/internal/lbs"
	"visionark/internal/model"
	"visionark/internal/task"
)

type exceptionKey struct {
	taskID model.TaskID
	date   string
}

// Memory is the in-memory store used by tests and the dev server. It
// implements both the catalog side (task.Repo) and the engine side
// (lbs.Store).
type Memory struct {
	mu         sync.RWMutex
	tasks      map[model.TaskID]model.Task
	exceptions map[int64]model.TaskException
	excByDate  map[exceptionKey]int64
	cache      map[string][]model.Occurrence
	nextExcID  int64
}

func NewMemory() *Memory {
	return &Memory{
		tasks:      map[model.TaskID]model.Task{},
		exceptions: map[int64]model.TaskException{},
		excByDate:  map[exceptionKey]int64{},
		cache:      map[string][]model.Occurrence{},
	}
}

var (
	_ task.Repo = (*Memory)(nil)
	_ lbs.Store = (*Memory)(nil)
)

func (m *Memory) Create(t model.Task) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if t.ID == "" {
		t.ID = task.NewTaskID()
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	m.tasks[t.ID] = t
	return t, nil
}

func (m *Memory) Get(id model.TaskID) (model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return model.Task{}, task.ErrNotFound
	}
	return t, nil
}

func (m *Memory) Update(id model.TaskID, p task.Patch) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return model.Task{}, task.ErrNotFound
	}

	task.ApplyPatch(&t, p)
	t.UpdatedAt = time.Now()
	m.tasks[id] = t
	return t, nil
}

// Delete removes the task and cascades to its exceptions and cache rows.
func (m *Memory) Delete(id model.TaskID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return task.ErrNotFound
	}
	delete(m.tasks, id)

	for excID, exc := range m.exceptions {
		if exc.TaskID == id {
			delete(m.excByDate, exceptionKey{exc.TaskID, exc.TargetDate.String()})
			delete(m.exceptions, excID)
		}
	}

	for day, rows := range m.cache {
		kept := rows[:0]
		for _, row := range rows {
			if row.TaskID != id {
				kept = append(kept, row)
			}
		}
		if len(kept) == 0 {
			delete(m.cache, day)
		} else {
			m.cache[day] = kept
		}
	}
	return nil
}

func (m *Memory) List(filter task.ListFilter) ([]model.Task, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if task.MatchesFilter(t, filter) {
			out = append(out, t)
		}
	}

	// Due date ascending, no due date last, then name.
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].DueDate, out[j].DueDate
		switch {
		case di == nil && dj == nil:
			return out[i].Name < out[j].Name
		case di == nil:
			return false
		case dj == nil:
			return true
		case !di.Equal(*dj):
			return di.Before(*dj)
		default:
			return out[i].Name < out[j].Name
		}
	})

	total := len(out)
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			out = nil
		} else {
			out = out[filter.Offset:]
		}
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (m *Memory) CreateException(exc model.TaskException) (model.TaskException, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := exceptionKey{exc.TaskID, exc.TargetDate.String()}
	if _, exists := m.excByDate[key]; exists {
		return model.TaskException{}, task.ErrDuplicateDate
	}

	m.nextExcID++
	exc.ID = m.nextExcID
	m.exceptions[exc.ID] = exc
	m.excByDate[key] = exc.ID
	return exc, nil
}

func (m *Memory) DeleteException(id int64) (model.TaskException, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exc, ok := m.exceptions[id]
	if !ok {
		return model.TaskException{}, task.ErrExceptionNotFound
	}
	delete(m.exceptions, id)
	delete(m.excByDate, exceptionKey{exc.TaskID, exc.TargetDate.String()})
	return exc, nil
}

func (m *Memory) ListExceptions(taskID model.TaskID) ([]model.TaskException, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.TaskException{}
	for _, exc := range m.exceptions {
		if exc.TaskID == taskID {
			out = append(out, exc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TargetDate.Before(out[j].TargetDate)
	})
	return out, nil
}

// lbs.Store side.

func (m *Memory) ActiveTasks() ([]model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.Task{}
	for _, t := range m.tasks {
		if t.Active {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) TaskByID(id model.TaskID) (model.Task, error) {
	t, err := m.Get(id)
	if err == task.ErrNotFound {
		return model.Task{}, lbs.ErrNotFound
	}
	return t, err
}

func (m *Memory) ExceptionFor(id model.TaskID, day model.Date) (*model.TaskException, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	excID, ok := m.excByDate[exceptionKey{id, day.String()}]
	if !ok {
		return nil, nil
	}
	exc := m.exceptions[excID]
	return &exc, nil
}

func (m *Memory) ReplaceOccurrences(start, end model.Date, rows []model.Occurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for day := start; !day.After(end); day = day.AddDays(1) {
		delete(m.cache, day.String())
	}
	for _, row := range rows {
		key := row.TargetDate.String()
		m.cache[key] = append(m.cache[key], row)
	}
	return nil
}

func (m *Memory) OccurrencesOn(day model.Date) ([]model.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.cache[day.String()]
	out := make([]model.Occurrence, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out, nil
}

func (m *Memory) StampOverflow(day model.Date, overflow bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.cache[day.String()]
	for i := range rows {
		rows[i].IsOverflow = overflow
	}
	return nil
}
