// Package http hosts the chaindesk API server: route setup, middleware
// chain, and lifecycle management.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/chaindesk/chaindesk/internal/config"
	"github.com/chaindesk/chaindesk/internal/interfaces/http/handlers"
	"github.com/chaindesk/chaindesk/internal/metrics"
)

// Server represents the chaindesk HTTP server
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *handlers.Handlers
	metrics  *metrics.Registry
	limiter  *rate.Limiter
	config   config.ServerConfig
}

// NewServer creates a server wired to the given handlers and metrics
func NewServer(cfg config.ServerConfig, h *handlers.Handlers, reg *metrics.Registry) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		handlers: h,
		metrics:  reg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		config:   cfg,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.WriteTimeoutMS) * time.Millisecond,
		IdleTimeout:  time.Duration(cfg.IdleTimeoutMS) * time.Millisecond,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.rateLimitMiddleware)
	s.router.Use(s.bodyLimitMiddleware)
	s.router.Use(s.timeoutMiddleware)
	s.router.Use(s.corsMiddleware)

	// Data endpoints (JSON envelope)
	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.jsonContentTypeMiddleware)
	api.HandleFunc("/prices", s.handlers.Prices).Methods("POST")
	api.HandleFunc("/gas", s.handlers.Gas).Methods("POST")
	api.HandleFunc("/tvl", s.handlers.TVL).Methods("POST")
	api.HandleFunc("/insights", s.handlers.Insights).Methods("POST")

	// Operational endpoints
	s.router.HandleFunc("/health", s.handlers.Health).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handlers.MethodNotAllowed)
}

// requestIDMiddleware adds a unique request ID to each request
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLoggingMiddleware logs each request and records request metrics
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		s.metrics.ObserveRequest(routeTemplate(r), strconv.Itoa(wrapper.statusCode), duration)

		log.Info().
			Str("request_id", requestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Str("remote", r.RemoteAddr).
			Msg("Request completed")
	})
}

// rateLimitMiddleware sheds load above the configured inbound rate
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"status":"failed","error":"rate limit exceeded"}`)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bodyLimitMiddleware caps request body reads; an oversized body surfaces
// as a decode error in the handler.
func (s *Server) bodyLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.MaxBodyBytes > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// timeoutMiddleware enforces the per-request deadline
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout())
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// corsMiddleware adds CORS headers; the API is public and unauthenticated
// apart from the paid endpoint's payment header.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Payment")
		w.Header().Set("Access-Control-Expose-Headers", "X-Payment-Required, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// jsonContentTypeMiddleware sets JSON content type for API responses
func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Address returns the configured listen address
func (s *Server) Address() string {
	return s.server.Addr
}

type contextKey string

const requestIDKey contextKey = "request_id"

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return "unknown"
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// responseWrapper captures HTTP status codes for logging
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
