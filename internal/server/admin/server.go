// Package admin runs the always-on operations endpoint exposing metrics,
// health and deployment history.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
	"git.home.luguber.info/inful/autodeployer/internal/logfields"
	"git.home.luguber.info/inful/autodeployer/internal/server/handlers"
	smw "git.home.luguber.info/inful/autodeployer/internal/server/middleware"
)

// Options configures a Server.
type Options struct {
	Bind   string
	Port   int
	Logger *slog.Logger
}

// Sources are the read models the admin endpoints render. History and
// Metrics are optional.
type Sources struct {
	Daemon  handlers.DaemonInterface
	History handlers.HistorySource
	Metrics http.Handler
}

// Server is the admin HTTP server.
type Server struct {
	opts    Options
	logger  *slog.Logger
	handler http.Handler

	mu   sync.Mutex
	srv  *http.Server
	ln   net.Listener
	done chan struct{}
}

// New creates a stopped admin server.
func New(src Sources, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{opts: opts, logger: logger}
	s.handler = s.routes(src)
	return s
}

func (s *Server) routes(src Sources) http.Handler {
	monitoring := handlers.NewMonitoringHandlers(src.Daemon)
	history := handlers.NewHistoryHandlers(src.History)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", monitoring.HandleHealthCheck)
	mux.HandleFunc("/health", monitoring.HandleHealthCheck)
	mux.HandleFunc("/history", history.HandleHistory)
	if src.Metrics != nil {
		mux.Handle("/metrics", src.Metrics)
	}
	return smw.Chain(s.logger, foundationerrors.NewHTTPErrorAdapter(s.logger))(mux)
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start binds the port and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	addr := net.JoinHostPort(s.opts.Bind, fmt.Sprint(s.opts.Port))
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryRuntime, "admin server failed to bind").
			WithContext("addr", addr).
			Build()
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server error", logfields.Error(err))
		}
	}()

	s.srv, s.ln, s.done = srv, ln, done
	s.logger.Info("Admin server started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down; safe before Start.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.ln, s.done = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	if err != nil {
		_ = srv.Close()
	}
	<-done
	s.logger.Info("Admin server stopped")
	if err != nil {
		return fmt.Errorf("admin server shutdown: %w", err)
	}
	return nil
}

// Addr returns the bound address while running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}
