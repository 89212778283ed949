package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"

	"visionark/internal/config"
	"visionark/internal/lbs"
	"visionark/internal/model"
	"visionark/internal/serverapp"
	"visionark/internal/store"
)

func main() {
	cfg, err := config.Load("visionark.yml")
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("load config: %v", err)
		}
		cfg = config.Default()
	}
	config.FromEnv(cfg)

	st, err := store.OpenSQLite(filepath.Join(cfg.Server.DataDir, "visionark.db"))
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	engine := lbs.New(st, cfg.Engine)
	handler, err := serverapp.NewHandler(serverapp.Options{
		Config: cfg,
		Repo:   st,
		Store:  st,
		Engine: engine,
		Logger: log.Default(),
	})
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	// Warm the daily cache so the first dashboard request is not cold.
	today := model.Today()
	if err := engine.Expand(today, today.AddDays(cfg.Server.ExpandDays)); err != nil {
		log.Fatalf("initial expansion: %v", err)
	}

	log.Printf("listening on http://localhost%s", cfg.Server.Addr)
	log.Fatal(http.ListenAndServe(cfg.Server.Addr, handler))
}
