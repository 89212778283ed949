package task

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"visionark/internal/lbs"
	"visionark/internal/model"
)

// Handler exposes the task catalog and exception table. Every mutation
// re-expands the affected date span through the engine so the daily
// cache never lags the catalog.
type Handler struct {
	repo        Repo
	engine      *lbs.Engine
	horizonDays int
}

func NewHandler(repo Repo, engine *lbs.Engine, horizonDays int) *Handler {
	if horizonDays <= 0 {
		horizonDays = 90
	}
	return &Handler{repo: repo, engine: engine, horizonDays: horizonDays}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}

// /api/lbs/tasks  (collection)
func (h *Handler) TasksRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		filter := ListFilter{
			Status:  q.Get("status"),
			Context: q.Get("spoke"),
		}
		if raw := q.Get("limit"); raw != "" {
			filter.Limit, _ = strconv.Atoi(raw)
		}
		if raw := q.Get("offset"); raw != "" {
			filter.Offset, _ = strconv.Atoi(raw)
		}

		ts, total, err := h.repo.List(filter)
		if err != nil {
			writeErr(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, map[string]any{
			"tasks":  ts,
			"total":  total,
			"limit":  filter.Limit,
			"offset": filter.Offset,
		})

	case http.MethodPost:
		var in model.Task
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		if strings.TrimSpace(in.Name) == "" {
			writeErr(w, 400, "task_name is required")
			return
		}
		if !in.RuleType.Valid() {
			writeErr(w, 400, "unknown rule_type")
			return
		}

		in.ID = ""
		in.Active = true
		t, err := h.repo.Create(in)
		if err != nil {
			writeErr(w, 500, err.Error())
			return
		}

		if err := h.expandFor(t); err != nil {
			writeErr(w, 500, "expansion failed")
			return
		}
		writeJSON(w, 201, map[string]any{
			"task_id": t.ID,
			"message": "task created",
		})

	default:
		writeErr(w, 405, "method not allowed")
	}
}

// /api/lbs/tasks/{id} and subresources
func (h *Handler) TasksSub(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/lbs/tasks/"), "/")
	if tail == "" {
		writeErr(w, 404, "not found")
		return
	}
	parts := strings.Split(tail, "/")

	switch parts[0] {
	case "by-date":
		if len(parts) == 2 {
			h.tasksByDate(w, r, parts[1])
			return
		}
	case "bulk-delete":
		h.bulkDelete(w, r)
		return
	case "bulk-status":
		h.bulkStatus(w, r)
		return
	default:
		if len(parts) == 1 {
			h.taskByID(w, r, model.TaskID(parts[0]))
			return
		}
	}

	writeErr(w, 404, "not found")
}

func (h *Handler) taskByID(w http.ResponseWriter, r *http.Request, id model.TaskID) {
	switch r.Method {
	case http.MethodGet:
		t, err := h.repo.Get(id)
		if err == ErrNotFound {
			writeErr(w, 404, "not found")
			return
		}
		if err != nil {
			writeErr(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, t)

	case http.MethodPut:
		var p Patch
		if err := decodeJSON(r, &p); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		if p.RuleType != nil && !p.RuleType.Valid() {
			writeErr(w, 400, "unknown rule_type")
			return
		}

		t, err := h.repo.Update(id, p)
		if err == ErrNotFound {
			writeErr(w, 404, "not found")
			return
		}
		if err != nil {
			writeErr(w, 500, err.Error())
			return
		}

		if err := h.expandFor(t); err != nil {
			writeErr(w, 500, "expansion failed")
			return
		}
		writeJSON(w, 200, map[string]any{"message": "task updated"})

	case http.MethodDelete:
		if err := h.repo.Delete(id); err != nil {
			if err == ErrNotFound {
				writeErr(w, 404, "not found")
				return
			}
			writeErr(w, 500, err.Error())
			return
		}

		if err := h.expandHorizon(); err != nil {
			writeErr(w, 500, "expansion failed")
			return
		}
		writeJSON(w, 200, map[string]any{"message": fmt.Sprintf("task %s deleted", id)})

	default:
		writeErr(w, 405, "method not allowed")
	}
}

func (h *Handler) tasksByDate(w http.ResponseWriter, r *http.Request, raw string) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}

	day, err := model.ParseDate(raw)
	if err != nil {
		writeErr(w, 400, err.Error())
		return
	}

	ts, err := h.engine.TasksForDate(day)
	if err != nil {
		writeErr(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"date": day, "tasks": ts})
}

func (h *Handler) bulkDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, 405, "method not allowed")
		return
	}

	var in struct {
		TaskIDs []model.TaskID `json:"task_ids"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, 400, "bad json")
		return
	}

	deleted := 0
	for _, id := range in.TaskIDs {
		switch err := h.repo.Delete(id); err {
		case nil:
			deleted++
		case ErrNotFound:
			// Ignore unknown IDs so one stale row does not fail the batch.
		default:
			writeErr(w, 500, err.Error())
			return
		}
	}

	if err := h.expandHorizon(); err != nil {
		writeErr(w, 500, "expansion failed")
		return
	}
	writeJSON(w, 200, map[string]any{
		"message":       fmt.Sprintf("deleted %d tasks", deleted),
		"deleted_count": deleted,
	})
}

func (h *Handler) bulkStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, 405, "method not allowed")
		return
	}

	var in struct {
		TaskIDs []model.TaskID `json:"task_ids"`
		Active  bool           `json:"active"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, 400, "bad json")
		return
	}

	updated := 0
	for _, id := range in.TaskIDs {
		switch _, err := h.repo.Update(id, Patch{Active: &in.Active}); err {
		case nil:
			updated++
		case ErrNotFound:
		default:
			writeErr(w, 500, err.Error())
			return
		}
	}

	if err := h.expandHorizon(); err != nil {
		writeErr(w, 500, "expansion failed")
		return
	}
	writeJSON(w, 200, map[string]any{
		"message":       fmt.Sprintf("updated %d tasks", updated),
		"updated_count": updated,
	})
}

// /api/lbs/exceptions  (collection)
func (h *Handler) ExceptionsRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, 405, "method not allowed")
		return
	}

	var in model.TaskException
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, 400, "bad json")
		return
	}
	if !in.Type.Valid() {
		writeErr(w, 400, "unknown exception_type")
		return
	}
	if in.TargetDate.IsZero() {
		writeErr(w, 400, "target_date is required")
		return
	}
	if in.Type == model.ExceptionOverrideLoad && in.OverrideLoadValue == nil {
		writeErr(w, 400, "override_load_value is required for OVERRIDE_LOAD")
		return
	}
	if _, err := h.repo.Get(in.TaskID); err == ErrNotFound {
		writeErr(w, 404, "task not found")
		return
	} else if err != nil {
		writeErr(w, 500, err.Error())
		return
	}

	exc, err := h.repo.CreateException(in)
	if err == ErrDuplicateDate {
		writeErr(w, 409, err.Error())
		return
	}
	if err != nil {
		writeErr(w, 500, err.Error())
		return
	}

	// Only the targeted date changes.
	if err := h.engine.Expand(exc.TargetDate, exc.TargetDate); err != nil {
		writeErr(w, 500, "expansion failed")
		return
	}
	writeJSON(w, 201, map[string]any{
		"id":      exc.ID,
		"message": "exception created",
	})
}

// /api/lbs/exceptions/{id}
func (h *Handler) ExceptionsSub(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeErr(w, 405, "method not allowed")
		return
	}

	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/lbs/exceptions/"), "/")
	id, err := strconv.ParseInt(tail, 10, 64)
	if err != nil {
		writeErr(w, 400, "bad exception id")
		return
	}

	exc, err := h.repo.DeleteException(id)
	if err == ErrExceptionNotFound {
		writeErr(w, 404, "not found")
		return
	}
	if err != nil {
		writeErr(w, 500, err.Error())
		return
	}

	if err := h.engine.Expand(exc.TargetDate, exc.TargetDate); err != nil {
		writeErr(w, 500, "expansion failed")
		return
	}
	writeJSON(w, 200, map[string]any{"message": "exception deleted"})
}

// /api/lbs/calendar-data?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) CalendarData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}

	start, err := model.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeErr(w, 400, err.Error())
		return
	}
	end, err := model.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeErr(w, 400, err.Error())
		return
	}

	out := map[string]any{}
	for day := start; !day.After(end); day = day.AddDays(1) {
		ts, err := h.engine.TasksForDate(day)
		if err != nil {
			writeErr(w, 500, err.Error())
			return
		}
		bySpoke := map[string]int{}
		for _, t := range ts {
			bySpoke[t.Context]++
		}
		out[day.String()] = map[string]any{
			"total":    len(ts),
			"by_spoke": bySpoke,
		}
	}
	writeJSON(w, 200, out)
}

func (h *Handler) expandFor(t model.Task) error {
	start, end := ExpandSpan(t, model.Today(), h.horizonDays)
	return h.engine.Expand(start, end)
}

func (h *Handler) expandHorizon() error {
	today := model.Today()
	return h.engine.Expand(today, today.AddDays(h.horizonDays))
}
