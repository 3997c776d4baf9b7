package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/tair/taghub/internal/inventory/config"
	"github.com/tair/taghub/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// MiddlewareConfig selects the middlewares wrapped around the API routes.
type MiddlewareConfig struct {
	EnableLogging   bool
	EnableTracing   bool
	TimeoutDuration time.Duration
	CORSOptions     cors.Options
}

// NewMiddlewareConfig derives the middleware chain from service configuration.
// A zero timeout disables the timeout wrapper.
func NewMiddlewareConfig(cfg *config.Config) *MiddlewareConfig {
	return &MiddlewareConfig{
		EnableLogging:   cfg.HTTPRequestLogging,
		EnableTracing:   cfg.TracingEnabled,
		TimeoutDuration: cfg.HTTPTimeout,
		CORSOptions: cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
			ExposedHeaders:   []string{requestIDHeader},
			AllowCredentials: true,
		},
	}
}

// RegisterMiddlewares installs the chain on router. Recovery is outermost so
// a panic anywhere below still gets a 500; request ids and spans exist before
// the request is logged.
func RegisterMiddlewares(router *mux.Router, cfg *MiddlewareConfig) {
	chain := []mux.MiddlewareFunc{RecoveryMiddleware}
	if cfg.TimeoutDuration > 0 {
		chain = append(chain, TimeoutMiddleware(cfg.TimeoutDuration))
	}
	chain = append(chain, RequestIDMiddleware)
	if cfg.EnableTracing {
		chain = append(chain, func(next http.Handler) http.Handler {
			return TracingMiddleware("inventory-http-request", next)
		})
	}
	if cfg.EnableLogging {
		chain = append(chain, LoggingMiddleware)
	}
	chain = append(chain, SecurityHeadersMiddleware)
	router.Use(chain...)

	logger.Logger.Info().
		Bool("logging", cfg.EnableLogging).
		Bool("tracing", cfg.EnableTracing).
		Dur("timeout", cfg.TimeoutDuration).
		Int("middlewares", len(chain)).
		Msg("Middlewares registered")
}

// RecoveryMiddleware turns a handler panic into a 500 response.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(r.Context()).
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("request_id", r.Header.Get(requestIDHeader)).
					Msg("Panic recovered")
				respondError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// TimeoutMiddleware bounds how long a handler may run.
func TimeoutMiddleware(timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, `{"success":false,"error":"Request timeout"}`)
	}
}

// RequestIDMiddleware propagates the caller's request id or assigns one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set(requestIDHeader, requestID)
		}
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r)
	})
}

// SecurityHeadersMiddleware sets the headers every JSON response carries.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// SetupCORS wraps the whole router, including /ws and /metrics.
func SetupCORS(cfg *MiddlewareConfig) func(http.Handler) http.Handler {
	if len(cfg.CORSOptions.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.New(cfg.CORSOptions).Handler
}
