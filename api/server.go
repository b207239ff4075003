/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. requestLogger: zerolog request logging
  4. CORS:       Cross-origin requests for the local frontend

ROUTE GROUPS:
  /api/guides/*        Pay guide management (windows and holidays ride
                       along on the guide payload)
  /api/shifts/*        Shift entry and single-shift preview
  /api/periods/*       Pay period lifecycle, extras, recalculation
  /api/tax/*           Tax settings and withholding reference tables

SECURITY NOTE:
  Single-user system, no authentication middleware. Bind to localhost.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Pay guide routes
		r.Route("/guides", func(r chi.Router) {
			r.Get("/", h.ListPayGuides)
			r.Post("/", h.CreatePayGuide)
			r.Get("/{id}", h.GetPayGuide)
			r.Put("/{id}", h.UpdatePayGuide)
			r.Delete("/{id}", h.DeletePayGuide)
		})

		// Shift routes
		r.Route("/shifts", func(r chi.Router) {
			r.Post("/", h.CreateShift)
			r.Get("/{id}", h.GetShift)
			r.Put("/{id}", h.UpdateShift)
			r.Delete("/{id}", h.DeleteShift)
			r.Get("/{id}/pay", h.PreviewShiftPay)
		})

		// Pay period routes
		r.Route("/periods", func(r chi.Router) {
			r.Get("/", h.ListPayPeriods)
			r.Post("/", h.CreatePayPeriod)
			r.Get("/{id}", h.GetPayPeriod)
			r.Get("/{id}/shifts", h.ListPeriodShifts)
			r.Post("/{id}/recalculate", h.RecalculatePeriod)
			r.Post("/{id}/status", h.ChangePeriodStatus)
			r.Post("/{id}/reopen", h.ReopenPeriod)
			r.Get("/{id}/extras", h.ListExtras)
			r.Post("/{id}/extras", h.AddExtra)
			r.Delete("/{id}/extras/{extraID}", h.DeleteExtra)
		})

		// Tax routes
		r.Route("/tax", func(r chi.Router) {
			r.Get("/settings", h.GetTaxSettings)
			r.Put("/settings", h.SaveTaxSettings)
			r.Get("/tables", h.GetTaxTables)
			r.Put("/tables", h.ReplaceTaxTables)
		})
	})

	return r
}

// requestLogger emits one structured line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
