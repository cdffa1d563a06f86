// Package server exposes drivers and configured connections over a
// read-only JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/pdo/internal/connections"
	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/filestore"
	"github.com/koustreak/pdo/internal/logger"
)

// Options configures a Server.
type Options struct {
	Registry    *database.Registry
	Connections *connections.Manager
	Logger      *logger.Logger

	// Store enables the export endpoint when non-nil.
	Store  filestore.Store
	Bucket string

	// MaxRows caps ?limit= on table reads; 0 means no cap.
	MaxRows int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	opts   Options
	log    *logger.Logger
	router chi.Router
}

func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Global()
	}
	s := &Server{opts: opts, log: log}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/drivers", s.handleDrivers)

	r.Route("/connections", func(r chi.Router) {
		r.Get("/", s.handleConnections)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/ping", s.handlePing)
			r.Get("/tables", s.handleTables)
			r.Get("/tables/{table}", s.handleRows)
			r.Get("/tables/{table}/schema", s.handleSchema)
			r.Post("/tables/{table}/export", s.handleExport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "route not found"})
	})
	return r
}

// requestLogger puts a request-scoped logger in the context and logs each
// request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := s.log.With().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(reqLog.WithContext(r.Context())))

		reqLog.InfoWith("request", map[string]any{
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
