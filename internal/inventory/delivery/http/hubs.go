package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tair/taghub/internal/inventory/usecase/command"
	"github.com/tair/taghub/internal/inventory/usecase/query"
)

// ListHubs handles GET /api/hubs
func (h *InventoryHandler) ListHubs(w http.ResponseWriter, r *http.Request) {
	hubs, err := h.queries.HubSummary.List(r.Context())
	if err != nil {
		respondDomainError(w, r, "list_hubs", err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: hubs})
}

// CreateHub handles POST /api/hubs
func (h *InventoryHandler) CreateHub(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID                   string  `json:"id"`
		Name                 string  `json:"name"`
		Threshold            int     `json:"threshold"`
		DaysOfCoverThreshold float64 `json:"days_of_cover_threshold"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	hub, err := h.commands.CreateHub.Handle(r.Context(), command.CreateHubCommand{
		ID:                   req.ID,
		Name:                 req.Name,
		Threshold:            req.Threshold,
		DaysOfCoverThreshold: req.DaysOfCoverThreshold,
		Actor:                actorFromContext(r.Context()),
	})
	if err != nil {
		respondDomainError(w, r, "create_hub", err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Hub created successfully",
		Data:    hub,
	})
}

// GetHub handles GET /api/hubs/{id}
func (h *InventoryHandler) GetHub(w http.ResponseWriter, r *http.Request) {
	summary, err := h.queries.HubSummary.Handle(r.Context(), query.GetHubSummaryQuery{HubID: mux.Vars(r)["id"]})
	if err != nil {
		respondDomainError(w, r, "get_hub", err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: summary})
}

// UpdateThreshold handles PATCH /api/hubs/{id}/threshold
func (h *InventoryHandler) UpdateThreshold(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Threshold            *int     `json:"threshold"`
		DaysOfCoverThreshold *float64 `json:"days_of_cover_threshold"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	hub, err := h.commands.UpdateThreshold.Handle(r.Context(), command.UpdateThresholdCommand{
		HubID:                mux.Vars(r)["id"],
		Threshold:            req.Threshold,
		DaysOfCoverThreshold: req.DaysOfCoverThreshold,
		Actor:                actorFromContext(r.Context()),
	})
	if err != nil {
		respondDomainError(w, r, "update_threshold", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Threshold updated successfully",
		Data:    hub,
	})
}

// RecordUsage handles POST /api/hubs/{id}/usage
func (h *InventoryHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Day     string `json:"day"`
		Applied int    `json:"applied"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	usage, err := h.commands.RecordUsage.Handle(r.Context(), command.RecordUsageCommand{
		HubID:   mux.Vars(r)["id"],
		Day:     req.Day,
		Applied: req.Applied,
		Actor:   actorFromContext(r.Context()),
	})
	if err != nil {
		respondDomainError(w, r, "record_usage", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Usage recorded successfully",
		Data:    usage,
	})
}

// ValidateStock handles GET /api/hubs/{id}/validate-stock?quantity=
func (h *InventoryHandler) ValidateStock(w http.ResponseWriter, r *http.Request) {
	quantity, ok := queryInt(w, r, "quantity")
	if !ok {
		return
	}

	result, err := h.queries.ValidateStock.Handle(r.Context(), query.ValidateStockQuery{
		HubID:    mux.Vars(r)["id"],
		Required: quantity,
	})
	if err != nil {
		respondDomainError(w, r, "validate_stock", err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: result})
}
