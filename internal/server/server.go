// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/eventbus"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/session"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/wire"
)

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = time.Minute
)

// Config holds server configuration.
type Config struct {
	Port           int
	Sessions       *session.Manager
	AllowedOrigins []string
	Logger         *zap.Logger

	// Events, when set, is consumed for the lifetime of Serve. Stats, when
	// set, is reported by /healthz.
	Events *eventbus.Bus
	Stats  *eventbus.Stats
}

// NewRouter builds the chi router: health check, REST API and the dashboard
// websocket.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &api{data: cfg.Sessions.Data(), logger: logger, now: cfg.Sessions.Now}
	ws := wire.NewHandler(cfg.Sessions, logger.Named("wire"), cfg.AllowedOrigins)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(withCORS(cfg.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status":   "ok",
			"sessions": cfg.Sessions.Len(),
		}
		if cfg.Stats != nil {
			body["events"] = cfg.Stats.Counts()
		}
		a.writeJSON(w, http.StatusOK, body)
	})
	r.Route("/api", func(r chi.Router) {
		a.routes(r)
		r.Get("/dashboard/ws", ws.ServeHTTP)
	})
	return r
}

// Run serves on cfg.Port until ctx is cancelled, alongside the session
// janitor and the event bus.
func Run(ctx context.Context, cfg Config) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listening: %w", err)
	}
	return Serve(ctx, ln, cfg)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, ln net.Listener, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &http.Server{
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down server")
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return cfg.Sessions.Run(gctx, janitorInterval)
	})
	if cfg.Events != nil {
		g.Go(func() error {
			return cfg.Events.Run(gctx)
		})
	}
	return g.Wait()
}
