// Package server is the node's HTTP service: it answers concept queries from
// other owners, serves the owner registry, and can expose a StorageProvider
// so that other processes use it as their remote backend.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/concepts/internal/comm"
	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/logger"
	"github.com/mesh-intelligence/concepts/internal/registry"
	"github.com/mesh-intelligence/concepts/internal/storage/metrics"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

const (
	maxBodyBytes    = 4 << 20
	shutdownTimeout = 5 * time.Second
)

// Options selects what the server exposes. Nil fields leave their routes
// unmounted.
type Options struct {
	Comm     *comm.OwnerCommunication
	Registry registry.Registry
	Items    types.StorageProvider
	Metrics  *metrics.Collector
}

// Server holds the handlers and their dependencies.
type Server struct {
	opts Options
	log  *zap.SugaredLogger
}

// New returns a server for opts.
func New(opts Options) *Server {
	return &Server{
		opts: opts,
		log:  logger.ComponentLogger("server"),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)

	if s.opts.Comm != nil {
		r.Post("/query", s.handleQuery)
	}
	if s.opts.Registry != nil {
		r.Post("/register", s.handleRegister)
		r.Get("/owner/{id}", s.handleGetOwner)
		r.Get("/owners", s.handleListOwners)
		r.Get("/owners/find", s.handleFindOwner)
	}
	if s.opts.Items != nil {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.handleListItems)
			r.Get("/{id}", s.handleGetItem)
			r.Put("/{id}", s.handlePutItem)
			r.Delete("/{id}", s.handleDeleteItem)
		})
	}
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())
	}
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("Listening", logger.FieldAddress, addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, "listen on %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Infow("Shutting down", logger.FieldAddress, addr)
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if s.opts.Metrics != nil {
			s.opts.Metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			s.opts.Metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		}
		s.log.Debugw("HTTP request",
			logger.FieldMethod, r.Method,
			logger.FieldPath, r.URL.Path,
			logger.FieldStatus, ww.Status(),
			logger.FieldDurationMS, time.Since(start).Milliseconds(),
			"request_id", chimiddleware.GetReqID(r.Context()))
	})
}

// pathParam returns a decoded URL parameter. chi matches on the raw path
// when the request carries escaped separators, leaving the value escaped.
func pathParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, nil
	}
	unescaped, err := url.PathUnescape(v)
	if err != nil {
		return "", errors.Mark(errors.Wrapf(err, "path parameter %s", key), types.ErrInvalidArgument)
	}
	return unescaped, nil
}

// decode reads a JSON body into dst and validates its struct tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return errors.Mark(errors.Wrap(err, "decode request body"), types.ErrInvalidArgument)
	}
	if err := types.Validator().Struct(dst); err != nil {
		return errors.Mark(errors.Wrap(err, "validate request body"), types.ErrInvalidArgument)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps sentinel errors to a status and writes {"error": ...}.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	case errors.IsAny(err, types.ErrInvalidArgument, types.ErrInvalidID, types.ErrInvalidData):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.Errorw("Request failed",
			logger.FieldMethod, r.Method,
			logger.FieldPath, r.URL.Path,
			logger.FieldError, err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
