package lbs

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"visionark/internal/model"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
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

func queryDate(r *http.Request, key string) (model.Date, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return model.Date{}, false, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return model.Date{}, false, err
	}
	return d, true, nil
}

// mondayOf returns the Monday of the week containing day.
func mondayOf(day model.Date) model.Date {
	return day.AddDays(-day.WeekdayMon0())
}

// /api/lbs/calculate/{date}
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}

	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/lbs/calculate/"), "/")
	day, err := model.ParseDate(raw)
	if err != nil {
		writeErr(w, 400, err.Error())
		return
	}

	daily, err := h.engine.DailyLoad(day)
	if err != nil {
		writeErr(w, 500, "load calculation failed")
		return
	}
	writeJSON(w, 200, daily)
}

// /api/lbs/expand
func (h *Handler) Expand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, 405, "method not allowed")
		return
	}

	var in struct {
		StartDate model.Date `json:"start_date"`
		EndDate   model.Date `json:"end_date"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, 400, "bad json")
		return
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		writeErr(w, 400, "start_date and end_date are required")
		return
	}

	if err := h.engine.Expand(in.StartDate, in.EndDate); err != nil {
		writeErr(w, 500, "expansion failed")
		return
	}
	writeJSON(w, 200, map[string]any{
		"message": "tasks expanded",
		"start":   in.StartDate,
		"end":     in.EndDate,
	})
}

// /api/lbs/dashboard?start=YYYY-MM-DD (default: Monday of the current week)
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}

	today := model.Today()
	start, ok, err := queryDate(r, "start")
	if err != nil {
		writeErr(w, 400, err.Error())
		return
	}
	if !ok {
		start = mondayOf(today)
	}

	dash, err := h.engine.BuildDashboard(start, today)
	if err != nil {
		writeErr(w, 500, "load calculation failed")
		return
	}
	writeJSON(w, 200, dash)
}

// /api/lbs/weekly?start=YYYY-MM-DD
func (h *Handler) Weekly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}

	start, ok, err := queryDate(r, "start")
	if err != nil {
		writeErr(w, 400, err.Error())
		return
	}
	if !ok {
		start = mondayOf(model.Today())
	}

	stats, err := h.engine.WeeklyStats(start)
	if err != nil {
		writeErr(w, 500, "load calculation failed")
		return
	}
	writeJSON(w, 200, stats)
}

// /api/lbs/heatmap?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) Heatmap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}

	start, okStart, err := queryDate(r, "start")
	if err != nil {
		writeErr(w, 400, err.Error())
		return
	}
	end, okEnd, err := queryDate(r, "end")
	if err != nil {
		writeErr(w, 400, err.Error())
		return
	}
	if !okStart || !okEnd {
		writeErr(w, 400, "start and end are required")
		return
	}

	days, err := h.engine.Heatmap(start, end)
	if err != nil {
		writeErr(w, 500, "load calculation failed")
		return
	}
	writeJSON(w, 200, map[string]any{"days": days})
}

// /api/lbs/trends?weeks=12
func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}

	weeks := 12
	if raw := strings.TrimSpace(r.URL.Query().Get("weeks")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeErr(w, 400, "weeks must be a positive integer")
			return
		}
		weeks = n
	}

	points, err := h.engine.Trends(weeks, model.Today())
	if err != nil {
		writeErr(w, 500, "load calculation failed")
		return
	}
	writeJSON(w, 200, map[string]any{"trends": points})
}

// /api/lbs/context-distribution?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) ContextDistribution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}

	start, okStart, err := queryDate(r, "start")
	if err != nil {
		writeErr(w, 400, err.Error())
		return
	}
	end, okEnd, err := queryDate(r, "end")
	if err != nil {
		writeErr(w, 400, err.Error())
		return
	}
	if !okStart || !okEnd {
		writeErr(w, 400, "start and end are required")
		return
	}

	dist, err := h.engine.ContextDistribution(start, end)
	if err != nil {
		writeErr(w, 500, "load calculation failed")
		return
	}
	writeJSON(w, 200, map[string]any{"distribution": dist})
}
