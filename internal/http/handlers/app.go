package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Tabix-Group/rialtor-plaques/internal/domain"
	"github.com/Tabix-Group/rialtor-plaques/internal/infra"
	"github.com/Tabix-Group/rialtor-plaques/internal/middleware"
	"github.com/Tabix-Group/rialtor-plaques/internal/pipeline"
)

// App bundles the dependencies shared by all HTTP handlers.
type App struct {
	Pipeline *pipeline.Orchestrator
	Jobs     domain.PlaqueJobRepository
	Logger   infra.Logger
}

func NewApp(orchestrator *pipeline.Orchestrator, jobs domain.PlaqueJobRepository, logger infra.Logger) *App {
	return &App{Pipeline: orchestrator, Jobs: jobs, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
