package lbs

import (
	"math"

	"visionark/internal/model"
)

const (
	dangerThreshold   = 8.0
	warningThreshold  = 6.0
	recoveryThreshold = 4.0
)

// DailyLoad aggregates the day's cache rows into the adjusted load:
//
//	adjusted = base + alpha*count^beta + switchCost*max(contexts-1, 0)
//
// Days with no occurrences short-circuit to an all-zero SAFE result.
func (e *Engine) DailyLoad(day model.Date) (model.DailyLoad, error) {
	rows, err := e.store.OccurrencesOn(day)
	if err != nil {
		return model.DailyLoad{}, err
	}

	entries := make([]model.Occurrence, 0, len(rows))
	for _, row := range rows {
		if row.Status != model.StatusSkipped {
			entries = append(entries, row)
		}
	}

	if len(entries) == 0 {
		return model.DailyLoad{
			Date:  day,
			Level: model.LevelSafe,
			Cap:   e.cfg.Cap,
			Tasks: []model.TaskLoad{},
		}, nil
	}

	baseLoad := 0.0
	contexts := map[string]struct{}{}
	breakdown := make([]model.TaskLoad, 0, len(entries))

	for _, entry := range entries {
		baseLoad += entry.CalculatedLoad

		line := model.TaskLoad{
			TaskID: entry.TaskID,
			Load:   entry.CalculatedLoad,
			Status: entry.Status,
		}
		t, err := e.store.TaskByID(entry.TaskID)
		if err != nil && err != ErrNotFound {
			return model.DailyLoad{}, err
		}
		if err == nil {
			line.TaskName = t.Name
			line.Context = t.Context
		}
		contexts[line.Context] = struct{}{}
		breakdown = append(breakdown, line)
	}

	taskCount := len(entries)
	uniqueContexts := len(contexts)

	countPenalty := e.cfg.Alpha * math.Pow(float64(taskCount), e.cfg.Beta)
	contextPenalty := e.cfg.SwitchCost * math.Max(float64(uniqueContexts-1), 0)
	adjusted := baseLoad + countPenalty + contextPenalty

	return model.DailyLoad{
		Date:           day,
		BaseLoad:       baseLoad,
		TaskCount:      taskCount,
		UniqueContexts: uniqueContexts,
		CountPenalty:   countPenalty,
		ContextPenalty: contextPenalty,
		AdjustedLoad:   adjusted,
		Level:          warningLevel(adjusted, e.cfg.Cap),
		Cap:            e.cfg.Cap,
		Tasks:          breakdown,
	}, nil
}

// warningLevel classifies an adjusted load; precedence is cap first,
// then the fixed danger/warning thresholds.
func warningLevel(adjusted, cap float64) model.WarningLevel {
	switch {
	case adjusted > cap:
		return model.LevelCritical
	case adjusted >= dangerThreshold:
		return model.LevelDanger
	case adjusted >= warningThreshold:
		return model.LevelWarning
	default:
		return model.LevelSafe
	}
}

// WeeklyStats reduces the 7 days starting at weekStart.
func (e *Engine) WeeklyStats(weekStart model.Date) (model.WeeklyStats, error) {
	stats := model.WeeklyStats{
		StartDate:  weekStart,
		EndDate:    weekStart.AddDays(6),
		DailyLoads: make([]float64, 0, 7),
	}

	total := 0.0
	for i := 0; i < 7; i++ {
		daily, err := e.DailyLoad(weekStart.AddDays(i))
		if err != nil {
			return model.WeeklyStats{}, err
		}
		stats.DailyLoads = append(stats.DailyLoads, daily.AdjustedLoad)
		total += daily.AdjustedLoad
		if daily.AdjustedLoad > e.cfg.Cap {
			stats.OverDays++
		}
		if daily.AdjustedLoad < recoveryThreshold {
			stats.RecoveryDays++
		}
	}

	stats.AverageLoad = total / 7
	stats.RecoveryRate = float64(stats.RecoveryDays) / 7 * 100
	return stats, nil
}
