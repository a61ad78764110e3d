// Package maintenance runs the status server shown to operators while a
// deployment window is open.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
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
	// Bind is the listen host; empty binds all interfaces.
	Bind string
	Port int
	// AssetDir is re-resolved on every Start so a freshly built directory is picked up.
	AssetDir string
	// Assets overrides AssetDir when set.
	Assets fs.FS
	Logger *slog.Logger
}

// Server serves /status and the static maintenance page. It can be started
// and stopped repeatedly on the same port.
type Server struct {
	opts    Options
	source  handlers.SnapshotSource
	logger  *slog.Logger
	mchain  func(http.Handler) http.Handler
	statusH *handlers.StatusHandlers

	mu   sync.Mutex
	srv  *http.Server
	ln   net.Listener
	done chan struct{}
}

// New creates a stopped server reading snapshots from source.
func New(source handlers.SnapshotSource, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		opts:    opts,
		source:  source,
		logger:  logger,
		mchain:  smw.Chain(logger, foundationerrors.NewHTTPErrorAdapter(logger)),
		statusH: handlers.NewStatusHandlers(source),
	}
}

// Handler builds the request router for the given asset root.
func (s *Server) Handler(assets fs.FS) http.Handler {
	static := handlers.NewAssetHandler(assets)
	return s.mchain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/status" {
			s.statusH.HandleStatus(w, r)
			return
		}
		static.ServeHTTP(w, r)
	}))
}

// Start binds the port and serves in the background. Starting a running
// server is a no-op.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	addr := net.JoinHostPort(s.opts.Bind, fmt.Sprint(s.opts.Port))
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryRuntime, "maintenance server failed to bind").
			WithSeverity(foundationerrors.SeverityError).
			WithContext("addr", addr).
			Build()
	}

	assets := s.opts.Assets
	if assets == nil {
		assets = ResolveAssets(s.opts.AssetDir)
	}

	srv := &http.Server{
		Handler:           s.Handler(assets),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("maintenance server error", logfields.Error(err))
		}
	}()

	s.srv, s.ln, s.done = srv, ln, done
	s.logger.Info("Maintenance server started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Stop stops accepting connections, drains in-flight requests and releases
// the port. It is safe to call before Start or more than once.
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
	s.logger.Info("Maintenance server stopped")
	if err != nil {
		return fmt.Errorf("maintenance server shutdown: %w", err)
	}
	return nil
}

// Addr returns the bound address while running, or "" when stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Running reports whether the server is currently serving.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv != nil
}
