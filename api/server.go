/*
Package api is the read-only HTTP admin surface.

PURPOSE:
  Operators want to inspect the ledger without crafting a TCP record
  stream. This surface exposes account snapshots and engine counters
  over HTTP/JSON. It never mutates ledger state.

ROUTER: chi
  - Lightweight, context-based, middleware support

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards

SECURITY NOTE:
  No authentication. Bind to a private interface in production.

SEE ALSO:
  - handlers.go: handler implementations
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the admin router.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/accounts", h.ListAccounts)
		r.Get("/accounts/{id}", h.GetAccount)
		r.Get("/stats", h.GetStats)
	})

	return r
}
