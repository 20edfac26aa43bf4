package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"freeturn/internal/database"
	"freeturn/internal/handlers"
	"freeturn/internal/lifecycle"
	"freeturn/internal/workers"
)

// NewRouter builds the API router with all routes registered.
func NewRouter(db *database.DB, engine *lifecycle.Engine, syncer *workers.Syncer, logger *slog.Logger) chi.Router {
	healthHandler := handlers.NewHealthHandler(db)
	projectHandler := handlers.NewProjectHandler(db, engine, logger)
	contactHandler := handlers.NewContactHandler(db, logger)
	templateHandler := handlers.NewTemplateHandler(db, logger)
	syncHandler := handlers.NewSyncHandler(syncer, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HealthCheck)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projectHandler.GetProjects)
			r.Get("/{id}", projectHandler.GetProjectByID)
			r.Get("/{id}/messages", projectHandler.GetProjectMessages)
			r.Post("/{id}/transitions/{name}", projectHandler.ApplyTransition)
		})

		r.Get("/people", contactHandler.GetPeople)
		r.Get("/organizations", contactHandler.GetOrganizations)

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", templateHandler.GetTemplates)
			r.Post("/", templateHandler.CreateTemplate)
		})

		r.Post("/sync", syncHandler.TriggerSync)
	})

	return r
}
