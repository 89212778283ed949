package lbs

import (
	"sort"

	"visionark/internal/config"
	"visionark/internal/model"
)

type HeatmapDay struct {
	Date      model.Date         `json:"date"`
	Load      float64            `json:"load"`
	Level     model.WarningLevel `json:"level"`
	TaskCount int                `json:"taskCount"`
}

// Heatmap produces per-day load cells for calendar visualization.
func (e *Engine) Heatmap(start, end model.Date) ([]HeatmapDay, error) {
	days := []HeatmapDay{}
	for day := start; !day.After(end); day = day.AddDays(1) {
		daily, err := e.DailyLoad(day)
		if err != nil {
			return nil, err
		}
		days = append(days, HeatmapDay{
			Date:      day,
			Load:      daily.AdjustedLoad,
			Level:     daily.Level,
			TaskCount: daily.TaskCount,
		})
	}
	return days, nil
}

type TrendPoint struct {
	WeekStart   model.Date `json:"date"`
	AverageLoad float64    `json:"average_load"`
	MaxLoad     float64    `json:"max_load"`
	MinLoad     float64    `json:"min_load"`
}

// Trends reduces the trailing weeks up to now into weekly min/max/avg
// points for trend charts.
func (e *Engine) Trends(weeks int, now model.Date) ([]TrendPoint, error) {
	if weeks <= 0 {
		weeks = 12
	}

	points := []TrendPoint{}
	weekStart := now.AddDays(-7 * weeks)
	for weekStart.Before(now) {
		weekEnd := weekStart.AddDays(6)

		var loads []float64
		for day := weekStart; !day.After(weekEnd) && !day.After(now); day = day.AddDays(1) {
			daily, err := e.DailyLoad(day)
			if err != nil {
				return nil, err
			}
			loads = append(loads, daily.AdjustedLoad)
		}

		if len(loads) > 0 {
			p := TrendPoint{WeekStart: weekStart, MaxLoad: loads[0], MinLoad: loads[0]}
			total := 0.0
			for _, l := range loads {
				total += l
				if l > p.MaxLoad {
					p.MaxLoad = l
				}
				if l < p.MinLoad {
					p.MinLoad = l
				}
			}
			p.AverageLoad = total / float64(len(loads))
			points = append(points, p)
		}

		weekStart = weekEnd.AddDays(1)
	}
	return points, nil
}

type ContextSlice struct {
	Context string  `json:"context"`
	Load    float64 `json:"load"`
}

type ContextDay struct {
	Date      model.Date     `json:"date"`
	TotalLoad float64        `json:"total_load"`
	Contexts  []ContextSlice `json:"contexts"`
}

// ContextDistribution sums cache loads per (date, context) for stacked
// bar charts. Tasks without a context are grouped under "unassigned".
func (e *Engine) ContextDistribution(start, end model.Date) ([]ContextDay, error) {
	out := []ContextDay{}
	for day := start; !day.After(end); day = day.AddDays(1) {
		rows, err := e.store.OccurrencesOn(day)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}

		byContext := map[string]float64{}
		total := 0.0
		for _, row := range rows {
			ctx := "unassigned"
			if t, err := e.store.TaskByID(row.TaskID); err == nil && t.Context != "" {
				ctx = t.Context
			} else if err != nil && err != ErrNotFound {
				return nil, err
			}
			byContext[ctx] += row.CalculatedLoad
			total += row.CalculatedLoad
		}

		cd := ContextDay{Date: day, TotalLoad: total}
		for ctx, load := range byContext {
			cd.Contexts = append(cd.Contexts, ContextSlice{Context: ctx, Load: load})
		}
		sort.Slice(cd.Contexts, func(i, j int) bool {
			return cd.Contexts[i].Context < cd.Contexts[j].Context
		})
		out = append(out, cd)
	}
	return out, nil
}

type Dashboard struct {
	Today                   model.DailyLoad   `json:"today"`
	Weekly                  model.WeeklyStats `json:"weekly"`
	DailyBreakdown          []model.DailyLoad `json:"daily_breakdown"`
	Config                  config.Engine     `json:"config"`
	OverloadConsecutiveDays int               `json:"overload_consecutive_days"`
}

// BuildDashboard assembles the week view plus the longest overloaded
// streak within weekStart's month.
func (e *Engine) BuildDashboard(weekStart, today model.Date) (Dashboard, error) {
	weekly, err := e.WeeklyStats(weekStart)
	if err != nil {
		return Dashboard{}, err
	}
	todayLoad, err := e.DailyLoad(today)
	if err != nil {
		return Dashboard{}, err
	}

	breakdown := make([]model.DailyLoad, 0, 7)
	for i := 0; i < 7; i++ {
		daily, err := e.DailyLoad(weekStart.AddDays(i))
		if err != nil {
			return Dashboard{}, err
		}
		breakdown = append(breakdown, daily)
	}

	streak, err := e.maxOverloadStreak(weekStart)
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		Today:                   todayLoad,
		Weekly:                  weekly,
		DailyBreakdown:          breakdown,
		Config:                  e.cfg,
		OverloadConsecutiveDays: streak,
	}, nil
}

// maxOverloadStreak scans the month containing anchor for the longest
// run of days whose adjusted load exceeds the cap.
func (e *Engine) maxOverloadStreak(anchor model.Date) (int, error) {
	monthStart := model.NewDate(anchor.Year(), anchor.Month(), 1)
	monthEnd := model.NewDate(anchor.Year(), anchor.Month(), anchor.DaysInMonth())

	maxRun, run := 0, 0
	for day := monthStart; !day.After(monthEnd); day = day.AddDays(1) {
		daily, err := e.DailyLoad(day)
		if err != nil {
			return 0, err
		}
		if daily.AdjustedLoad > e.cfg.Cap {
			run++
			if run > maxRun {
				maxRun = run
			}
		} else {
			run = 0
		}
	}
	return maxRun, nil
}
