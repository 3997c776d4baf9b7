package http

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/tair/taghub/pkg/logger"
)

// LoggingMiddleware logs HTTP requests with structured logging
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		ctx := r.Context()
		span := trace.SpanFromContext(ctx)
		traceID := "no-trace"
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		}

		logger.Debug(ctx).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Str("trace_id", traceID).
			Msg("HTTP request started")

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		// 4xx are expected business outcomes (conflicts, shortfalls)
		logEvent := logger.WithContext(ctx).Info()
		if ww.statusCode >= 500 {
			logEvent = logger.WithContext(ctx).Error()
		} else if ww.statusCode >= 400 {
			logEvent = logger.WithContext(ctx).Warn()
		}

		logEvent.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.statusCode).
			Dur("duration", duration).
			Int64("duration_ms", duration.Milliseconds()).
			Str("trace_id", traceID).
			Msg("HTTP request completed")
	})
}
