package http

import (
	"net/http"
	"time"

	"github.com/tair/taghub/internal/inventory/domain"
	"github.com/tair/taghub/internal/inventory/usecase/query"
)

// GetAlerts handles GET /api/alerts?hub_id=
func (h *InventoryHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	report, err := h.queries.GetAlerts.Handle(r.Context(), query.GetAlertsQuery{
		HubID: r.URL.Query().Get("hub_id"),
	})
	if err != nil {
		respondDomainError(w, r, "get_alerts", err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: report})
}

// QueryEvents handles GET /api/events?type=&tag_id=&hub_id=&transfer_id=&lot_id=&since=&limit=
func (h *InventoryHandler) QueryEvents(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	params := r.URL.Query()

	var since time.Time
	if raw := params.Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid since parameter, expected RFC3339")
			return
		}
		since = parsed
	}

	events, err := h.queries.QueryEvents.Handle(r.Context(), query.QueryEventsQuery{
		Type:       domain.EventType(params.Get("type")),
		TagID:      params.Get("tag_id"),
		HubID:      params.Get("hub_id"),
		TransferID: params.Get("transfer_id"),
		LotID:      params.Get("lot_id"),
		Since:      since,
		Limit:      limit,
	})
	if err != nil {
		respondDomainError(w, r, "query_events", err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: events})
}

// ListIncidents handles GET /api/incidents
func (h *InventoryHandler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	incidents, err := h.queries.ListIncidents.Handle(r.Context())
	if err != nil {
		respondDomainError(w, r, "list_incidents", err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: incidents})
}

// GetTelemetry handles GET /api/telemetry
func (h *InventoryHandler) GetTelemetry(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, Response{Success: true, Data: h.telemetry.Snapshot()})
}
