package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/taghub/internal/inventory/domain"
	"github.com/tair/taghub/internal/inventory/telemetry"
	"github.com/tair/taghub/internal/inventory/usecase"
	"github.com/tair/taghub/pkg/logger"
)

// InventoryHandler handles HTTP requests for the inventory service
type InventoryHandler struct {
	commands  *usecase.Commands
	queries   *usecase.Queries
	telemetry *telemetry.Collector
	auth      *Authenticator

	// Prometheus metrics
	requestCounter *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	requestSummary *prometheus.SummaryVec
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(
	commands *usecase.Commands,
	queries *usecase.Queries,
	collector *telemetry.Collector,
	authenticator *Authenticator,
	reg prometheus.Registerer,
) *InventoryHandler {
	requestCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_service_requests_total",
			Help: "Total number of requests to inventory service",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inventory_service_request_duration_seconds",
			Help:    "Duration of inventory service requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Summary metric for percentile calculation (p50, p90, p95, p99)
	requestSummary := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "inventory_service_request_duration_summary",
			Help: "Summary of request durations with percentiles (client-side quantiles)",
			Objectives: map[float64]float64{
				0.5:  0.05,
				0.9:  0.01,
				0.95: 0.01,
				0.99: 0.001,
			},
			MaxAge: 10 * time.Minute,
		},
		[]string{"method", "endpoint"},
	)

	if reg != nil {
		reg.MustRegister(requestCounter, requestLatency, requestSummary)
	}

	return &InventoryHandler{
		commands:       commands,
		queries:        queries,
		telemetry:      collector,
		auth:           authenticator,
		requestCounter: requestCounter,
		requestLatency: requestLatency,
		requestSummary: requestSummary,
	}
}

// Response is the envelope of every JSON response.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// ErrorDetail carries the structured fields of an inventory error so
// clients can retry, substitute a hub or escalate.
type ErrorDetail struct {
	Remedy           string           `json:"remedy,omitempty"`
	CurrentStatus    domain.TagStatus `json:"current_status,omitempty"`
	Available        int              `json:"available,omitempty"`
	Requested        int              `json:"requested,omitempty"`
	Shortfall        int              `json:"shortfall,omitempty"`
	AlternativeHubID string           `json:"alternative_hub_id,omitempty"`
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware wraps handlers with Prometheus metrics
func (h *InventoryHandler) metricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()

		h.requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
		h.requestLatency.WithLabelValues(r.Method, endpoint).Observe(duration)
		h.requestSummary.WithLabelValues(r.Method, endpoint).Observe(duration)
	}
}

// RegisterRoutes registers all inventory routes
func (h *InventoryHandler) RegisterRoutes(router *mux.Router) {
	authed := h.auth.AuthMiddleware
	admin := h.auth.AdminMiddleware

	// Hubs
	router.HandleFunc("/api/hubs", h.metricsMiddleware("/api/hubs", h.ListHubs)).Methods("GET")
	router.HandleFunc("/api/hubs", h.metricsMiddleware("/api/hubs", admin(h.CreateHub))).Methods("POST")
	router.HandleFunc("/api/hubs/{id}", h.metricsMiddleware("/api/hubs/{id}", h.GetHub)).Methods("GET")
	router.HandleFunc("/api/hubs/{id}/threshold", h.metricsMiddleware("/api/hubs/{id}/threshold", admin(h.UpdateThreshold))).Methods("PATCH")
	router.HandleFunc("/api/hubs/{id}/usage", h.metricsMiddleware("/api/hubs/{id}/usage", admin(h.RecordUsage))).Methods("POST")
	router.HandleFunc("/api/hubs/{id}/validate-stock", h.metricsMiddleware("/api/hubs/{id}/validate-stock", h.ValidateStock)).Methods("GET")

	// Tags
	router.HandleFunc("/api/tags", h.metricsMiddleware("/api/tags", h.ListTags)).Methods("GET")
	router.HandleFunc("/api/tags/receive", h.metricsMiddleware("/api/tags/receive", authed(h.ReceiveTags))).Methods("POST")
	router.HandleFunc("/api/tags/{id}", h.metricsMiddleware("/api/tags/{id}", h.GetTag)).Methods("GET")
	router.HandleFunc("/api/tags/{id}/movements", h.metricsMiddleware("/api/tags/{id}/movements", h.ListMovements)).Methods("GET")
	router.HandleFunc("/api/tags/{id}/assign", h.metricsMiddleware("/api/tags/{id}/assign", authed(h.AssignTag))).Methods("POST")
	router.HandleFunc("/api/tags/{id}/apply", h.metricsMiddleware("/api/tags/{id}/apply", authed(h.ApplyTag))).Methods("POST")
	router.HandleFunc("/api/tags/{id}/unreserve", h.metricsMiddleware("/api/tags/{id}/unreserve", authed(h.UnreserveTag))).Methods("POST")
	router.HandleFunc("/api/tags/{id}/rma", h.metricsMiddleware("/api/tags/{id}/rma", authed(h.MarkRMA))).Methods("POST")

	// Lots
	router.HandleFunc("/api/lots/{id}/quarantine", h.metricsMiddleware("/api/lots/{id}/quarantine", authed(h.QuarantineLot))).Methods("POST")
	router.HandleFunc("/api/lots/{id}/release", h.metricsMiddleware("/api/lots/{id}/release", authed(h.ReleaseQuarantine))).Methods("POST")

	// Transfers
	router.HandleFunc("/api/transfers", h.metricsMiddleware("/api/transfers", h.ListTransfers)).Methods("GET")
	router.HandleFunc("/api/transfers", h.metricsMiddleware("/api/transfers", authed(h.InitiateTransfer))).Methods("POST")
	router.HandleFunc("/api/transfers/overdue", h.metricsMiddleware("/api/transfers/overdue", h.CheckOverdue)).Methods("GET")
	router.HandleFunc("/api/transfers/{id}", h.metricsMiddleware("/api/transfers/{id}", h.GetTransfer)).Methods("GET")
	router.HandleFunc("/api/transfers/{id}/arrive", h.metricsMiddleware("/api/transfers/{id}/arrive", authed(h.ConfirmArrival))).Methods("POST")
	router.HandleFunc("/api/transfers/{id}/resolve", h.metricsMiddleware("/api/transfers/{id}/resolve", authed(h.ResolveOverdue))).Methods("POST")

	// Reporting
	router.HandleFunc("/api/alerts", h.metricsMiddleware("/api/alerts", h.GetAlerts)).Methods("GET")
	router.HandleFunc("/api/events", h.metricsMiddleware("/api/events", h.QueryEvents)).Methods("GET")
	router.HandleFunc("/api/incidents", h.metricsMiddleware("/api/incidents", h.ListIncidents)).Methods("GET")
	router.HandleFunc("/api/telemetry", h.metricsMiddleware("/api/telemetry", h.GetTelemetry)).Methods("GET")
}

// RegisterHealthCheck registers health check endpoint. check may be nil for
// stores without an external dependency.
func (h *InventoryHandler) RegisterHealthCheck(router *mux.Router, check func(ctx context.Context) error) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, Response{
					Success: false,
					Error:   "Database unavailable",
				})
				return
			}
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Inventory service is healthy",
		})
	}).Methods("GET")
}

// statusForCode maps inventory error codes to HTTP statuses.
func statusForCode(code domain.Code) int {
	switch code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidStateTransition, domain.CodeHubMismatch, domain.CodeInsufficientStock:
		return http.StatusConflict
	case domain.CodeOverrideRequired:
		return http.StatusForbidden
	case domain.CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError writes err in the response envelope. Inventory errors
// keep their code and structured fields; anything else is a 500 whose
// details stay in the log.
func respondDomainError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	var inventoryErr *domain.Error
	if !errors.As(err, &inventoryErr) {
		logger.WithContext(r.Context()).Error().
			Err(err).
			Str("operation", operation).
			Msg("Inventory operation failed")
		respondJSON(w, http.StatusInternalServerError, Response{
			Success: false,
			Error:   "Internal server error",
		})
		return
	}

	resp := Response{
		Success: false,
		Error:   inventoryErr.Error(),
		Code:    string(inventoryErr.Code),
	}
	detail := ErrorDetail{
		Remedy:           inventoryErr.Remedy,
		CurrentStatus:    inventoryErr.CurrentStatus,
		Available:        inventoryErr.Available,
		Requested:        inventoryErr.Requested,
		Shortfall:        inventoryErr.Shortfall(),
		AlternativeHubID: inventoryErr.AlternativeHubID,
	}
	if detail != (ErrorDetail{}) {
		resp.Data = detail
	}
	respondJSON(w, statusForCode(inventoryErr.Code), resp)
}

// decodeBody decodes a JSON request body. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid " + name + " parameter",
		})
		return 0, false
	}
	return value, true
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError sends an error envelope
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Response{Success: false, Error: message})
}
