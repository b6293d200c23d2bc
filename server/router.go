// Package server is the thin HTTP ingress. Handlers decode requests, call
// the orchestrator and stores, and encode responses; no domain logic lives
// here.
package server

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	ledgerx "github.com/tanpawarit/aura-supervisor/agent/ledger"
	orchx "github.com/tanpawarit/aura-supervisor/agent/orchestrator"
	statex "github.com/tanpawarit/aura-supervisor/agent/state"
)

// Config holds the listener settings.
type Config struct {
	Addr string `envconfig:"ADDR" default:":8080"`
	// MaxUploadBytes bounds multipart image uploads.
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"16777216"`
}

// NewRouter builds the chi router over the session API.
func NewRouter(orch *orchx.Orchestrator, sessions statex.Store, ledger ledgerx.Ledger, cfg Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	h := newSessionHandler(orch, sessions, ledger, cfg)

	r.Get("/health", h.Health)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/log", h.Log)
		r.Post("/{id}/interactions", h.Interact)
		r.Post("/{id}/end", h.End)
		r.Delete("/{id}", h.Delete)
	})

	return r
}
