package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-hassdriver/internal/agent"
	"github.com/nerrad567/gray-logic-hassdriver/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Group(func(r chi.Router) {
				r.Use(s.require(auth.PermPointsRead))
				r.Get("/points", s.handleListPoints)
				r.Get("/points/{name}", s.handleGetPoint)
				r.Get("/points/{name}/value", s.handleReadPoint)
				r.Get("/scrape", s.handleLastScrape)
				r.Get("/ws", s.handleWebSocket)
				r.Get("/audit", s.handleListAudit)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.require(auth.PermPointsWrite))
				r.Put("/points/{name}/value", s.handleWritePoint)
				r.Put("/points/{name}/default", s.handleSetDefault)
				r.Post("/points/{name}/revert", s.handleRevertPoint)
				r.Post("/points/{name}/commands", s.handleCommand)
				r.Post("/scrape", s.handleScrape)
				r.Post("/revert", s.handleRevertAll)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.require(auth.PermConfigManage))
				r.Get("/config", s.handleListConfig)
				r.Get("/config/*", s.handleGetConfig)
				r.Put("/config/*", s.handlePutConfig)
				r.Delete("/config/*", s.handleDeleteConfig)
				r.Post("/reload", s.handleReload)
			})
		})
	})

	return r
}

// handleHealth reports the agent's health. It answers 503 while the
// device is unhealthy so load balancers and probes can act on it.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h := s.agent.Health()
	status := http.StatusOK
	if h.Status == agent.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status":     h.Status,
		"version":    s.version,
		"device":     h,
		"ws_clients": s.hub.ClientCount(),
	})
}
