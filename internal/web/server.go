// Package web provides the HTTP server that hosts the comments endpoint.
package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/evcraddock/filecomments/internal/auth"
	"github.com/evcraddock/filecomments/internal/comment"
	"github.com/evcraddock/filecomments/internal/config"
	"github.com/evcraddock/filecomments/internal/dav"
	"github.com/evcraddock/filecomments/internal/logging"
	"github.com/evcraddock/filecomments/internal/metrics"
	"github.com/evcraddock/filecomments/internal/node"
	"github.com/evcraddock/filecomments/internal/report"
)

// Server is the comments HTTP server.
type Server struct {
	db       *sql.DB
	cfg      config.Config
	nodes    *node.Repository
	comments *comment.Repository
	users    *auth.UserStore
	apiKeys  *auth.APIKeyStore
	metrics  *metrics.Metrics
	router   chi.Router
}

// NewServer creates a server backed by db.
func NewServer(db *sql.DB, cfg config.Config) *Server {
	nodes := node.NewRepository(db)
	comments := comment.NewRepository(db, nodes)

	s := &Server{
		db:       db,
		cfg:      cfg,
		nodes:    nodes,
		comments: comments,
		users:    auth.NewUserStore(db),
		apiKeys:  auth.NewAPIKeyStore(db),
		metrics:  metrics.New(),
	}

	davHandler := dav.NewHandler(comments, report.NewEngine(comments), dav.Options{
		BasePath: cfg.BasePath,
		Targets:  nodes,
		Metrics:  s.metrics,
	})

	var protected http.Handler = davHandler
	if !cfg.AuthDisabled {
		protected = auth.RequireBasicAuth(s.apiKeys, s.users, davHandler)
	}

	r := chi.NewRouter()
	r.Use(logging.RequestLogger)
	r.MethodNotAllowed(davHandler.MethodNotAllowed)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	mount := cfg.BasePath
	if mount == "" {
		mount = "/"
	}
	r.Mount(mount, protected)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on the configured port and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listening: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.AuthDisabled {
		slog.Warn("authentication disabled; comment authors are taken from request payloads")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("serving comments",
			"addr", ln.Addr().String(),
			"base_path", s.cfg.BasePath,
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		slog.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// handleHealth reports whether the database is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encoding response", "error", err)
	}
}
