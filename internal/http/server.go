// Package http serves the budget engine as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
	"bilancio/internal/store"
)

// Deps are the collaborators the handlers call into.
type Deps struct {
	Budgets  *services.BudgetService
	Months   *services.MonthView
	Taxonomy store.Taxonomy

	// Ready reports whether the server can take traffic. Nil means always.
	Ready func(ctx context.Context) error

	// RequestsPerMinute caps mutating requests per client. Zero uses the
	// limiter default.
	RequestsPerMinute int

	Logger *applog.Logger
}

type Server struct {
	http.Server
	deps    Deps
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		deps:    deps,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RequestsPerMinute}),
		tracer:  trace.NewMiddleware(security.ClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/months/{year}/{month}", s.handleGetMonth)
	mux.HandleFunc("POST /api/months/{year}/{month}/sync", s.handleSyncMonth)
	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("PUT /api/budgets/{id}", s.handleEditBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)
	mux.HandleFunc("GET /api/taxonomy", s.handleTaxonomy)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)

	var h http.Handler = mux
	h = s.limiter.Middleware(security.ClientIP, nil)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = applog.RequestIDMiddleware(trace.RequestIDFrom)(h)
	h = applog.Middleware(deps.Logger)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:           addr,
		Handler:        h,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Metrics returns the request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}
