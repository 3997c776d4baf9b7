package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tair/taghub/internal/inventory/domain"
	"github.com/tair/taghub/internal/inventory/usecase/command"
	"github.com/tair/taghub/internal/inventory/usecase/query"
)

// InitiateTransfer handles POST /api/transfers
func (h *InventoryHandler) InitiateTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromHubID string     `json:"from_hub_id"`
		ToHubID   string     `json:"to_hub_id"`
		Quantity  int        `json:"quantity"`
		TagIDs    []string   `json:"tag_ids"`
		Reason    string     `json:"reason"`
		ETA       *time.Time `json:"eta"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	transfer, err := h.commands.InitiateTransfer.Handle(r.Context(), command.InitiateTransferCommand{
		FromHubID: req.FromHubID,
		ToHubID:   req.ToHubID,
		Quantity:  req.Quantity,
		TagIDs:    req.TagIDs,
		Reason:    req.Reason,
		ETA:       req.ETA,
		Actor:     actorFromContext(r.Context()),
	})
	if err != nil {
		respondDomainError(w, r, "initiate_transfer", err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Transfer initiated successfully",
		Data:    transfer,
	})
}

// ListTransfers handles GET /api/transfers?status=&hub_id=
func (h *InventoryHandler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	transfers, err := h.queries.ListTransfers.Handle(r.Context(), query.ListTransfersQuery{
		Status: domain.TransferStatus(params.Get("status")),
		HubID:  params.Get("hub_id"),
	})
	if err != nil {
		respondDomainError(w, r, "list_transfers", err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: transfers})
}

// GetTransfer handles GET /api/transfers/{id}
func (h *InventoryHandler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	transfer, err := h.queries.ListTransfers.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, r, "get_transfer", err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: transfer})
}

// CheckOverdue handles GET /api/transfers/overdue?hub_id=
func (h *InventoryHandler) CheckOverdue(w http.ResponseWriter, r *http.Request) {
	overdue, err := h.queries.CheckOverdue.Handle(r.Context(), query.CheckOverdueQuery{
		HubID: r.URL.Query().Get("hub_id"),
	})
	if err != nil {
		respondDomainError(w, r, "check_overdue", err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: overdue})
}

// ConfirmArrival handles POST /api/transfers/{id}/arrive
func (h *InventoryHandler) ConfirmArrival(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	transfer, err := h.commands.ConfirmArrival.Handle(r.Context(), command.ConfirmArrivalCommand{
		TransferID: mux.Vars(r)["id"],
		Notes:      req.Notes,
		Actor:      actorFromContext(r.Context()),
	})
	if err != nil {
		respondDomainError(w, r, "confirm_arrival", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Transfer arrival confirmed",
		Data:    transfer,
	})
}

// ResolveOverdue handles POST /api/transfers/{id}/resolve
func (h *InventoryHandler) ResolveOverdue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resolution string `json:"resolution"`
		Notes      string `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.commands.ResolveOverdue.Handle(r.Context(), command.ResolveOverdueCommand{
		TransferID: mux.Vars(r)["id"],
		Resolution: domain.OverdueResolution(req.Resolution),
		Notes:      req.Notes,
		Actor:      actorFromContext(r.Context()),
	})
	if err != nil {
		respondDomainError(w, r, "resolve_overdue", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Overdue transfer resolved",
		Data:    result,
	})
}
