package main

import (
	"log"
	"net/http"

	"visionark/internal/config"
	"visionark/internal/lbs"
	"visionark/internal/model"
	"visionark/internal/serverapp"
	"visionark/internal/store"
)

// Dev entry point. Runs the full API against a seeded in-memory store so
// the server comes up with data and no sqlite file on disk. The real
// binary lives in cmd/server.
func main() {
	cfg := config.Default()
	config.FromEnv(cfg)

	mem := store.NewMemory()
	seed(mem)

	engine := lbs.New(mem, cfg.Engine)
	handler, err := serverapp.NewHandler(serverapp.Options{
		Config: cfg,
		Repo:   mem,
		Store:  mem,
		Engine: engine,
		Logger: log.Default(),
	})
	if err != nil {
		log.Fatal(err)
	}

	today := model.Today()
	if err := engine.Expand(today, today.AddDays(cfg.Server.ExpandDays)); err != nil {
		log.Fatal(err)
	}

	log.Printf("dev server listening on http://localhost%s", cfg.Server.Addr)
	log.Fatal(http.ListenAndServe(cfg.Server.Addr, handler))
}

func seed(mem *store.Memory) {
	today := model.Today()
	anchor := today.AddDays(-3)
	due := today.AddDays(10)
	overrideLoad := 1.0

	tasks := []model.Task{
		{
			Name:          "weekly review",
			Context:       "planning",
			BaseLoadScore: 2.0,
			Active:        true,
			RuleType:      model.RuleWeekly,
			Sun:           true,
		},
		{
			Name:          "water the plants",
			Context:       "home",
			BaseLoadScore: 0.5,
			Active:        true,
			RuleType:      model.RuleEveryNDays,
			IntervalDays:  3,
			AnchorDate:    &anchor,
		},
		{
			Name:          "pay rent",
			Context:       "finance",
			BaseLoadScore: 1.0,
			Active:        true,
			RuleType:      model.RuleMonthlyDay,
			MonthDay:      1,
		},
		{
			Name:          "file quarterly report",
			Context:       "work",
			BaseLoadScore: 4.0,
			Active:        true,
			RuleType:      model.RuleOnce,
			DueDate:       &due,
		},
		{
			Name:          "team retro",
			Context:       "work",
			BaseLoadScore: 1.5,
			Active:        true,
			RuleType:      model.RuleMonthlyNthWeekday,
			NthInMonth:    -1,
			WeekdayMon1:   5,
		},
	}

	for _, t := range tasks {
		created, err := mem.Create(t)
		if err != nil {
			log.Fatal(err)
		}
		if created.Name == "weekly review" {
			if _, err := mem.CreateException(model.TaskException{
				TaskID:            created.ID,
				TargetDate:        today.AddDays(7),
				Type:              model.ExceptionOverrideLoad,
				OverrideLoadValue: &overrideLoad,
				Notes:             "light week",
			}); err != nil {
				log.Fatal(err)
			}
		}
	}
}
