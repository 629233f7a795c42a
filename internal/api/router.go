package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/device", func(r chi.Router) {
			r.Get("/", s.handleGetDevice)
			r.Get("/snapshot", s.handleGetSnapshot)
			r.Post("/refresh", s.handleRefresh)
		})

		r.Route("/entities", func(r chi.Router) {
			r.Get("/", s.handleListEntities)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetEntity)
				r.Post("/command", s.handleEntityCommand)
			})
		})

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", s.handleListEntries)
			r.Post("/validate", s.handleValidateEntry)
		})

		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth reports liveness and whether the hub is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	available := s.device.Status().Available
	if !available {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           status,
		"version":          s.version,
		"device_available": available,
		"ws_clients":       s.hub.ClientCount(),
	})
}
