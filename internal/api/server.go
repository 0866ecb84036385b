// Package api serves the edgeprint pipeline over HTTP.
//
// Every endpoint takes a JSON body that is decoded strictly (unknown
// fields are rejected) and validated before any work starts. Binary
// payloads (documents, images) travel as base64 strings. Errors always
// have the shape
//
//	{"error": {"code": "INVALID_PAGE_COUNT", "message": "..."}}
//
// with the status derived from the error category: validation 400,
// not found 404, exhausted retries 503, anything else 500.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/edgeprint/pkg/pipeline"
)

// Defaults for Options.
const (
	DefaultMaxBodyBytes = 256 << 20
	DefaultTimeout      = 5 * time.Minute
	shutdownGrace       = 10 * time.Second
)

// Options configure a Server.
type Options struct {
	MaxBodyBytes int64
	Timeout      time.Duration
}

// Server routes HTTP requests to a pipeline runner.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
	opts   Options
}

// New creates a server. A nil logger discards output.
func New(runner *pipeline.Runner, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Server{runner: runner, logger: logger, opts: opts}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.Timeout))

	r.Get("/health", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.limitBody)
		r.Post("/layout", s.layout)
		r.Post("/template", s.template)
		r.Post("/analyze", s.analyze)
		r.Post("/mockup", s.mockup)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.startJob)
			r.Get("/{id}", s.getJob)
			r.Post("/{id}/resume", s.resumeJob)
			r.Post("/{id}/chunks/{index}", s.processChunk)
			r.Post("/{id}/merge", s.mergeJob)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// requestID tags each request with an ID, reusing X-Request-Id when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}
