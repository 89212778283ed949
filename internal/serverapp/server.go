package serverapp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"visionark/internal/config"
	"visionark/internal/httpmw"
	"visionark/internal/lbs"
	"visionark/internal/task"
)

// Options wires the LBS engine into an HTTP surface. Repo and Store are
// usually the same object (the memory or sqlite store) seen through its
// two interfaces.
type Options struct {
	Config *config.Config
	Repo   task.Repo
	Store  lbs.Store
	Engine *lbs.Engine
	Logger *log.Logger
}

func NewHandler(opts Options) (http.Handler, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Repo == nil || opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	engine := opts.Engine
	if engine == nil {
		engine = lbs.New(opts.Store, opts.Config.Engine)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "visionark-lbs",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, err := opts.Store.ActiveTasks(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "task storage unavailable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "visionark-lbs",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	lbsHandler := lbs.NewHandler(engine)
	mux.HandleFunc("/api/lbs/dashboard", lbsHandler.Dashboard)
	mux.HandleFunc("/api/lbs/weekly", lbsHandler.Weekly)
	mux.HandleFunc("/api/lbs/calculate/", lbsHandler.Calculate)
	mux.HandleFunc("/api/lbs/expand", lbsHandler.Expand)
	mux.HandleFunc("/api/lbs/heatmap", lbsHandler.Heatmap)
	mux.HandleFunc("/api/lbs/trends", lbsHandler.Trends)
	mux.HandleFunc("/api/lbs/context-distribution", lbsHandler.ContextDistribution)

	taskHandler := task.NewHandler(opts.Repo, engine, opts.Config.Server.ExpandDays)
	mux.HandleFunc("/api/lbs/tasks", taskHandler.TasksRoot)
	mux.HandleFunc("/api/lbs/tasks/", taskHandler.TasksSub)
	mux.HandleFunc("/api/lbs/exceptions", taskHandler.ExceptionsRoot)
	mux.HandleFunc("/api/lbs/exceptions/", taskHandler.ExceptionsSub)
	mux.HandleFunc("/api/lbs/calendar-data", taskHandler.CalendarData)

	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(opts.Config); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	return httpmw.Chain(
		mux,
		httpmw.WithAccessLog(opts.Logger),
		httpmw.WithRequestID,
		httpmw.WithRecover(opts.Logger),
	), nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
