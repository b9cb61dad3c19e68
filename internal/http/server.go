package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-aging-risk-dashboard/internal/config"
	"go-aging-risk-dashboard/internal/connectors/inventory"
)

const requestIDHeader = "X-Request-ID"

// Server wraps an HTTP server and route handlers.
type Server struct {
	httpServer *nethttp.Server
	store      *inventory.Store
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server with the dashboard endpoints.
func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var store *inventory.Store
	if cfg.DBEnabled {
		createdStore, err := inventory.NewStore(cfg)
		if err != nil {
			return nil, err
		}
		store = createdStore
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpServer := &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      NewRouter(cfg, store, reg, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{httpServer: httpServer, store: store, logger: logger}, nil
}

// NewRouter builds the route table. A nil store serves 503 on data routes.
func NewRouter(cfg config.Config, store *inventory.Store, reg *prometheus.Registry, logger *slog.Logger) nethttp.Handler {
	m := newMetrics(reg)

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(m.middleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler(cfg))
	r.Get("/ready", readyHandler(store, m))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(cfg.APIToken))
		r.Get("/dashboard/store-danger-summary", storeSummaryHandler(store, m))
		r.Get("/dashboard/inventory-by-status", inventoryByStatusHandler(cfg.InventoryDefaultLimit, cfg.InventoryMaxLimit, store, m))
		r.Get("/search/inventory", searchInventoryHandler(store, m))
		r.Get("/status/services", servicesStatusHandler(store, m))
	})
	return r
}

// Handler exposes the root handler, mainly for tests.
func (s *Server) Handler() nethttp.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.store != nil {
		_ = s.store.Close()
	}
	return err
}

func healthHandler(cfg config.Config) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"status":      "ok",
			"app":         cfg.AppName,
			"environment": cfg.Environment,
			"time":        time.Now().UTC(),
		})
	}
}

// bearerAuth rejects requests without the configured token. An empty token
// disables the check.
func bearerAuth(token string) func(nethttp.Handler) nethttp.Handler {
	return func(next nethttp.Handler) nethttp.Handler {
		if token == "" {
			return next
		}
		want := []byte(token)
		return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
				writeJSON(w, nethttp.StatusUnauthorized, map[string]any{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestIDMiddleware honours an incoming X-Request-ID or mints a uuid, echoes
// it on the response and stores it under chi's request id key.
func requestIDMiddleware(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), middleware.RequestIDKey, id)))
	})
}

func loggingMiddleware(logger *slog.Logger) func(nethttp.Handler) nethttp.Handler {
	return func(next nethttp.Handler) nethttp.Handler {
		return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.LogAttrs(r.Context(), slog.LevelInfo, "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", responseStatus(ww)),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// responseStatus reports 200 for handlers that wrote a body without an
// explicit WriteHeader.
func responseStatus(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return nethttp.StatusOK
	}
	return ww.Status()
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
