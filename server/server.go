// Package server is the REST layer in front of the tree core: thin
// translation between HTTP and the validate/normalize/transform operations,
// document storage, and the external builder trigger. All tree semantics
// live in package tree; handlers here only decode, delegate and encode.
package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
)

// Version is reported by /info and the MCP implementation block.
const Version = "1.2.0"

// apiPrefix namespaces every route, mirroring the REST namespace the
// builder's ecosystem expects.
const apiPrefix = "/oxybridge/v1"

// Server wires the handlers to their collaborators.
type Server struct {
	store    DocumentStore
	renderer CSSRegenerator
	logger   *slog.Logger
	maxBody  int64
	authOff  bool
}

// Option configures a Server.
type Option func(*Server)

// WithMaxBodyBytes caps JSON request bodies. Default: 1 MB.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithoutAuth disables application-password checks. Test use only.
func WithoutAuth() Option {
	return func(s *Server) { s.authOff = true }
}

// New creates a Server. renderer may be a client with no endpoint
// configured; only /regenerate-css degrades in that case.
func New(store DocumentStore, renderer CSSRegenerator, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:    store,
		renderer: renderer,
		logger:   logger,
		maxBody:  1 << 20,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the chi router with the full middleware stack and all
// routes. Discovery endpoints and /health are public; everything else
// requires an application password.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.requestLog)
	r.Use(securityHeaders)
	r.Use(maxJSONBody(s.maxBody))

	r.Route(apiPrefix, func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/info", s.handleInfo)
		r.Get("/ai/context", s.handleAIContext)
		r.Get("/ai/schema", s.handleAISchema)

		r.Group(func(r chi.Router) {
			if !s.authOff {
				r.Use(s.basicAuth)
			}

			r.Route("/templates", func(r chi.Router) {
				r.Get("/", s.handleList(KindTemplate))
				r.Post("/", s.handleCreate(KindTemplate))
				r.Get("/{id}", s.handleGet)
				r.Put("/{id}", s.handleUpdate)
				r.Delete("/{id}", s.handleDelete)
			})

			r.Route("/pages", func(r chi.Router) {
				r.Get("/", s.handleList(KindPage))
				r.Post("/", s.handleCreate(KindPage))
				r.Get("/{id}", s.handleGet)
				r.Put("/{id}", s.handleUpdate)
				r.Delete("/{id}", s.handleDelete)
			})

			// Kind-agnostic access by id; POST updates in place (the CMS
			// convention this API mirrors).
			r.Get("/documents/{id}", s.handleGet)
			r.Post("/documents/{id}", s.handleUpdate)

			r.Post("/ai/validate", s.handleAIValidate)
			r.Post("/ai/transform", s.handleAITransform)

			r.Post("/regenerate-css/{id}", s.handleRegenerateCSS)
		})
	})

	return r
}
