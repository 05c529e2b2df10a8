package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/singleflight"

	"github.com/me/satalloc/internal/allocator"
	"github.com/me/satalloc/internal/config"
	"github.com/me/satalloc/internal/parser"
	"github.com/me/satalloc/internal/solver"
	"github.com/me/satalloc/internal/store"
)

// Server is the allocation REST API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.Config
	startTime time.Time
	parser    *parser.Parser
	validator *parser.Validator
	store     store.Store
	solvers   *solver.Registry
	solves    singleflight.Group // concurrent solves of one document share a run
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithSolverRegistry replaces the registry built from cfg.Solver.
func WithSolverRegistry(reg *solver.Registry) Option {
	return func(s *Server) {
		s.solvers = reg
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.Config, st store.Store, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		parser:    parser.New(logger),
		validator: parser.NewValidator(logger),
		store:     st,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.solvers == nil {
		s.solvers = solver.NewDefaultRegistry(cfg.Solver, logger)
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// allocatorFor builds an allocator bound to one backend.
func (s *Server) allocatorFor(sv solver.Solver, algorithm string) *allocator.Allocator {
	cfg := allocator.ConfigFrom(s.config)
	if algorithm != "" {
		cfg.Algorithm = algorithm
	}
	return allocator.New(sv, cfg, s.logger)
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)

		// Instances
		r.Route("/instances", func(r chi.Router) {
			r.Get("/", s.handleListInstances)
			r.Post("/", s.handleCreateInstance)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetInstance)
				r.Delete("/", s.handleDeleteInstance)
				r.Post("/solve", s.handleSolveInstance)
			})
		})

		// Inline solve without cataloguing
		r.Post("/solve", s.handleSolve)
	})
}
