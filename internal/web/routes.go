package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/pavelbre/copycheck/internal/web/handlers"
)

func (s *Server) setupRoutes(factory handlers.RunnerFactory) {
	checkHandler := handlers.NewCheckHandler(s.config, s.jobManager, factory)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Check (long-running operations)
		r.Post("/check", checkHandler.Start)
		r.Get("/check/{jobId}", checkHandler.Status)
		r.Get("/check/{jobId}/events", checkHandler.Events)
		r.Delete("/check/{jobId}", checkHandler.Cancel)
	})
}
