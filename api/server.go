/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Recoverer:  Panic recovery (500 instead of crash)
  2. RequestID:  Unique ID per request for tracing
  3. Logging:    One structured slog line per request
  4. CORS:       Cross-origin requests for a browser frontend

ROUTE GROUPS:
  /api/funds/*       Funds, cycles, payouts, payments, statements, exports
  /api/backup        Whole-collection download
  /api/restore       Whole-collection upload (admin password)
  /api/scenarios/*   Demo scenarios (admin password to load/reset)
  /healthz           Liveness

SECURITY NOTE:
  Only delete, restore and scenario loading are gated, by the
  X-Admin-Password header. Everything else is public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/chitfund/logging"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger *logging.Logger, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", AdminPasswordHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/funds", func(r chi.Router) {
			r.Get("/", h.ListFunds)
			r.Post("/", h.CreateFund)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetFund)
				r.Delete("/", h.DeleteFund)

				r.Get("/cycles", h.ListCycles)
				r.Get("/cycles/available", h.ListAvailableCycles)
				r.Get("/cycles/{cycle}", h.GetCycle)
				r.Patch("/cycles/{cycle}/payments/{member}", h.UpdatePayment)
				r.Post("/payouts", h.RecordPayout)

				r.Get("/members/{member}/statement", h.GetStatement)
				r.Get("/export", h.ExportFund)
				r.Post("/export/sheets", h.ExportToSheets)
			})
		})

		r.Get("/backup", h.Backup)
		r.Post("/restore", h.Restore)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetScenario)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Chit Fund Book</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Chit Fund Book API</h1>
<ul>
<li><a href="/api/funds">/api/funds</a> - List funds</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List demo scenarios</li>
<li><a href="/api/backup">/api/backup</a> - Download a backup</li>
</ul>
</body>
</html>`))
	})

	return r
}
