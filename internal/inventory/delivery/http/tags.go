package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tair/taghub/internal/inventory/domain"
	"github.com/tair/taghub/internal/inventory/usecase/command"
	"github.com/tair/taghub/internal/inventory/usecase/query"
)

// ReceiveTags handles POST /api/tags/receive
func (h *InventoryHandler) ReceiveTags(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HubID     string     `json:"hub_id"`
		LotID     string     `json:"lot_id"`
		Quantity  int        `json:"quantity"`
		TagIDs    []string   `json:"tag_ids"`
		ExpiresAt *time.Time `json:"expires_at"`
		Notes     string     `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	tags, err := h.commands.ReceiveTags.Handle(r.Context(), command.ReceiveTagsCommand{
		HubID:     req.HubID,
		LotID:     req.LotID,
		Quantity:  req.Quantity,
		TagIDs:    req.TagIDs,
		ExpiresAt: req.ExpiresAt,
		Notes:     req.Notes,
		Actor:     actorFromContext(r.Context()),
	})
	if err != nil {
		respondDomainError(w, r, "receive_tags", err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Tags received successfully",
		Data:    tags,
	})
}

// ListTags handles GET /api/tags?hub_id=&lot_id=&status=&limit=
func (h *InventoryHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	params := r.URL.Query()

	tags, err := h.queries.ListTags.Handle(r.Context(), query.ListTagsQuery{
		HubID:  params.Get("hub_id"),
		LotID:  params.Get("lot_id"),
		Status: domain.TagStatus(params.Get("status")),
		Limit:  limit,
	})
	if err != nil {
		respondDomainError(w, r, "list_tags", err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: tags})
}

// GetTag handles GET /api/tags/{id}
func (h *InventoryHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	tag, err := h.queries.GetTag.Handle(r.Context(), query.GetTagQuery{TagID: mux.Vars(r)["id"]})
	if err != nil {
		respondDomainError(w, r, "get_tag", err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: tag})
}

// ListMovements handles GET /api/tags/{id}/movements
func (h *InventoryHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}

	movements, err := h.queries.ListMovements.Handle(r.Context(), query.ListMovementsQuery{
		TagID: mux.Vars(r)["id"],
		Limit: limit,
	})
	if err != nil {
		respondDomainError(w, r, "list_movements", err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: movements})
}

// AssignTag handles POST /api/tags/{id}/assign
func (h *InventoryHandler) AssignTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShipmentID string `json:"shipment_id"`
		HubID      string `json:"hub_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	tag, err := h.commands.AssignTag.Handle(r.Context(), command.AssignTagCommand{
		TagID:      mux.Vars(r)["id"],
		ShipmentID: req.ShipmentID,
		HubID:      req.HubID,
		Actor:      actorFromContext(r.Context()),
	})
	if err != nil {
		respondDomainError(w, r, "assign_tag", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Tag assigned successfully",
		Data:    tag,
	})
}

// ApplyTag handles POST /api/tags/{id}/apply
func (h *InventoryHandler) ApplyTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HubID string `json:"hub_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	tag, err := h.commands.ApplyTag.Handle(r.Context(), command.ApplyTagCommand{
		TagID: mux.Vars(r)["id"],
		HubID: req.HubID,
		Actor: actorFromContext(r.Context()),
	})
	if err != nil {
		respondDomainError(w, r, "apply_tag", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Tag applied successfully",
		Data:    tag,
	})
}

// UnreserveTag handles POST /api/tags/{id}/unreserve
func (h *InventoryHandler) UnreserveTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason   string `json:"reason"`
		Override bool   `json:"override"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	tag, err := h.commands.UnreserveTag.Handle(r.Context(), command.UnreserveTagCommand{
		TagID:      mux.Vars(r)["id"],
		Reason:     req.Reason,
		IsOverride: req.Override,
		Actor:      actorFromContext(r.Context()),
	})
	if err != nil {
		respondDomainError(w, r, "unreserve_tag", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Tag unreserved successfully",
		Data:    tag,
	})
}

// MarkRMA handles POST /api/tags/{id}/rma
func (h *InventoryHandler) MarkRMA(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	tag, err := h.commands.MarkRMA.Handle(r.Context(), command.MarkRMACommand{
		TagID:  mux.Vars(r)["id"],
		Reason: req.Reason,
		Actor:  actorFromContext(r.Context()),
	})
	if err != nil {
		respondDomainError(w, r, "mark_rma", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Tag marked as RMA",
		Data:    tag,
	})
}

// QuarantineLot handles POST /api/lots/{id}/quarantine
func (h *InventoryHandler) QuarantineLot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	lot, err := h.commands.QuarantineLot.Handle(r.Context(), command.QuarantineLotCommand{
		LotID:  mux.Vars(r)["id"],
		Reason: req.Reason,
		Actor:  actorFromContext(r.Context()),
	})
	if err != nil {
		respondDomainError(w, r, "quarantine_lot", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Lot quarantined successfully",
		Data:    lot,
	})
}

// ReleaseQuarantine handles POST /api/lots/{id}/release
func (h *InventoryHandler) ReleaseQuarantine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	resolution, err := h.commands.ReleaseQuarantine.Handle(r.Context(), command.ReleaseQuarantineCommand{
		LotID:  mux.Vars(r)["id"],
		Action: domain.QuarantineAction(req.Action),
		Reason: req.Reason,
		Actor:  actorFromContext(r.Context()),
	})
	if err != nil {
		respondDomainError(w, r, "release_quarantine", err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Lot quarantine resolved",
		Data:    resolution,
	})
}
