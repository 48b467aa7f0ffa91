package server

import (
	"context"
	"net/http"
	"time"

	"bucheron/internal/commons"
	apperrors "bucheron/internal/errors"
	"bucheron/internal/infrastructure/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Routes is implemented by every API controller.
type Routes interface {
	Routes(r chi.Router)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewRouter mounts the controllers under /api next to the health and metrics
// endpoints.
func NewRouter(controllers []Routes, db Pinger, m *metrics.ServerMetrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))
	r.Use(m.Middleware)

	r.Get("/healthz", Healthz(db, logger))
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(api chi.Router) {
		for _, c := range controllers {
			c.Routes(api)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		traceID, l := commons.NewTrace(logger)
		commons.WriteError(w, l, traceID, apperrors.NewNotFoundError("route introuvable: "+r.URL.Path))
	})
	return r
}

// Healthz answers 200 while db responds to a ping within two seconds, 503 otherwise.
func Healthz(db Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			commons.WriteJSON(w, logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		commons.WriteJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// RequestLogger logs one line per request at Info, or Warn for 5xx.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remoteAddr", r.RemoteAddr),
			}
			if ww.Status() >= http.StatusInternalServerError {
				logger.Warn("request", fields...)
				return
			}
			logger.Info("request", fields...)
		})
	}
}
