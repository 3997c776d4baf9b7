package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterSwaggerDocs registers Swagger documentation routes
// @Summary Swagger documentation
// @Description Swagger API documentation for Inventory Service
// @Tags Swagger
// @Success 200 {string} string "Swagger UI"
// @Router /swagger/ [get]
func RegisterSwaggerDocs(router *mux.Router, swaggerHandler http.Handler) {
	router.PathPrefix("/swagger/").Handler(swaggerHandler)
}

// CreateHub godoc
// @Summary Create hub
// @Description Register a hub with its reorder threshold (Admin only)
// @Tags Hubs
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{id=string,name=string,threshold=int,days_of_cover_threshold=number} true "Hub data"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string,code=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Router /api/hubs [post]
func (h *InventoryHandler) CreateHubDoc() {}

// ListHubs godoc
// @Summary List hub summaries
// @Description Stock counters, burn rates and days of cover for every hub
// @Tags Hubs
// @Produce json
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/hubs [get]
func (h *InventoryHandler) ListHubsDoc() {}

// GetHub godoc
// @Summary Get hub summary
// @Tags Hubs
// @Produce json
// @Param id path string true "Hub ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 404 {object} object{success=bool,error=string,code=string}
// @Router /api/hubs/{id} [get]
func (h *InventoryHandler) GetHubDoc() {}

// UpdateThreshold godoc
// @Summary Update hub thresholds
// @Description Change the stock and days-of-cover thresholds (Admin only)
// @Tags Hubs
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Hub ID"
// @Param request body object{threshold=int,days_of_cover_threshold=number} true "Thresholds"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string,code=string}
// @Failure 404 {object} object{success=bool,error=string,code=string}
// @Router /api/hubs/{id}/threshold [patch]
func (h *InventoryHandler) UpdateThresholdDoc() {}

// RecordUsage godoc
// @Summary Record historical usage
// @Description Import the applied count of a past day (Admin only)
// @Tags Hubs
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Hub ID"
// @Param request body object{day=string,applied=int} true "Usage (day as YYYY-MM-DD)"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string,code=string}
// @Router /api/hubs/{id}/usage [post]
func (h *InventoryHandler) RecordUsageDoc() {}

// ValidateStock godoc
// @Summary Validate stock for a reservation
// @Description Check whether a hub can cover a quantity and suggest an alternative hub
// @Tags Hubs
// @Produce json
// @Param id path string true "Hub ID"
// @Param quantity query int true "Required quantity"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 400 {object} object{success=bool,error=string,code=string}
// @Router /api/hubs/{id}/validate-stock [get]
func (h *InventoryHandler) ValidateStockDoc() {}

// ReceiveTags godoc
// @Summary Receive tags
// @Description Register a batch of new tags into hub stock
// @Tags Tags
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{hub_id=string,lot_id=string,quantity=int,tag_ids=[]string,notes=string} true "Batch"
// @Success 201 {object} object{success=bool,message=string,data=array}
// @Failure 400 {object} object{success=bool,error=string,code=string}
// @Failure 409 {object} object{success=bool,error=string,code=string}
// @Router /api/tags/receive [post]
func (h *InventoryHandler) ReceiveTagsDoc() {}

// ListTags godoc
// @Summary List tags
// @Tags Tags
// @Produce json
// @Param hub_id query string false "Hub ID"
// @Param lot_id query string false "Lot ID"
// @Param status query string false "stock, reserved, applied, rma, in_transit or lost"
// @Param limit query int false "Limit"
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/tags [get]
func (h *InventoryHandler) ListTagsDoc() {}

// GetTag godoc
// @Summary Get tag
// @Tags Tags
// @Produce json
// @Param id path string true "Tag ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 404 {object} object{success=bool,error=string,code=string}
// @Router /api/tags/{id} [get]
func (h *InventoryHandler) GetTagDoc() {}

// AssignTag godoc
// @Summary Assign tag to a shipment
// @Description Reserve a stock tag. A hub mismatch returns 409 with a transfer remedy.
// @Tags Tags
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Tag ID"
// @Param request body object{shipment_id=string,hub_id=string} true "Assignment"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 404 {object} object{success=bool,error=string,code=string}
// @Failure 409 {object} object{success=bool,error=string,code=string,data=object}
// @Router /api/tags/{id}/assign [post]
func (h *InventoryHandler) AssignTagDoc() {}

// ApplyTag godoc
// @Summary Apply tag
// @Tags Tags
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Tag ID"
// @Param request body object{hub_id=string} false "Hub performing the application"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 409 {object} object{success=bool,error=string,code=string}
// @Router /api/tags/{id}/apply [post]
func (h *InventoryHandler) ApplyTagDoc() {}

// UnreserveTag godoc
// @Summary Unreserve tag
// @Description Return a reserved tag to stock. Needs override once the fulfillment job started.
// @Tags Tags
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Tag ID"
// @Param request body object{reason=string,override=bool} false "Unreserve options"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 403 {object} object{success=bool,error=string,code=string}
// @Failure 409 {object} object{success=bool,error=string,code=string}
// @Router /api/tags/{id}/unreserve [post]
func (h *InventoryHandler) UnreserveTagDoc() {}

// MarkRMA godoc
// @Summary Mark tag as RMA
// @Tags Tags
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Tag ID"
// @Param request body object{reason=string} true "Reason"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 409 {object} object{success=bool,error=string,code=string}
// @Router /api/tags/{id}/rma [post]
func (h *InventoryHandler) MarkRMADoc() {}

// ListMovements godoc
// @Summary Tag movement history
// @Tags Audit
// @Produce json
// @Param id path string true "Tag ID"
// @Param limit query int false "Limit"
// @Success 200 {object} object{success=bool,data=array}
// @Failure 404 {object} object{success=bool,error=string,code=string}
// @Router /api/tags/{id}/movements [get]
func (h *InventoryHandler) ListMovementsDoc() {}

// QuarantineLot godoc
// @Summary Quarantine lot
// @Tags Lots
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Lot ID"
// @Param request body object{reason=string} true "Reason"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 404 {object} object{success=bool,error=string,code=string}
// @Failure 409 {object} object{success=bool,error=string,code=string}
// @Router /api/lots/{id}/quarantine [post]
func (h *InventoryHandler) QuarantineLotDoc() {}

// ReleaseQuarantine godoc
// @Summary Resolve lot quarantine
// @Description Release the lot back to the pool or send its tags to RMA
// @Tags Lots
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Lot ID"
// @Param request body object{action=string,reason=string} true "action is release or rma"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string,code=string}
// @Failure 404 {object} object{success=bool,error=string,code=string}
// @Router /api/lots/{id}/release [post]
func (h *InventoryHandler) ReleaseQuarantineDoc() {}

// InitiateTransfer godoc
// @Summary Initiate transfer
// @Description Move stock between hubs. Insufficient stock returns 409 with an alternative hub.
// @Tags Transfers
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{from_hub_id=string,to_hub_id=string,quantity=int,tag_ids=[]string,reason=string,eta=string} true "Transfer"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string,code=string}
// @Failure 409 {object} object{success=bool,error=string,code=string,data=object}
// @Router /api/transfers [post]
func (h *InventoryHandler) InitiateTransferDoc() {}

// ListTransfers godoc
// @Summary List transfers
// @Tags Transfers
// @Produce json
// @Param status query string false "in_transit, completed or lost"
// @Param hub_id query string false "Origin or destination hub"
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/transfers [get]
func (h *InventoryHandler) ListTransfersDoc() {}

// CheckOverdue godoc
// @Summary Overdue transfers
// @Tags Transfers
// @Produce json
// @Param hub_id query string false "Origin or destination hub"
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/transfers/overdue [get]
func (h *InventoryHandler) CheckOverdueDoc() {}

// ConfirmArrival godoc
// @Summary Confirm transfer arrival
// @Tags Transfers
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Transfer ID"
// @Param request body object{notes=string} false "Notes"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 404 {object} object{success=bool,error=string,code=string}
// @Failure 409 {object} object{success=bool,error=string,code=string}
// @Router /api/transfers/{id}/arrive [post]
func (h *InventoryHandler) ConfirmArrivalDoc() {}

// ResolveOverdue godoc
// @Summary Resolve overdue transfer
// @Description Mark an overdue transfer arrived or lost; lost opens an incident
// @Tags Transfers
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Transfer ID"
// @Param request body object{resolution=string,notes=string} true "resolution is arrived or lost"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 409 {object} object{success=bool,error=string,code=string}
// @Router /api/transfers/{id}/resolve [post]
func (h *InventoryHandler) ResolveOverdueDoc() {}

// GetAlerts godoc
// @Summary Current alerts
// @Description Low stock, days of cover and overdue transfer alerts derived on read
// @Tags Reporting
// @Produce json
// @Param hub_id query string false "Hub ID"
// @Success 200 {object} object{success=bool,data=object}
// @Router /api/alerts [get]
func (h *InventoryHandler) GetAlertsDoc() {}

// QueryEvents godoc
// @Summary Query the event journal
// @Tags Audit
// @Produce json
// @Param type query string false "Event type"
// @Param tag_id query string false "Tag ID"
// @Param hub_id query string false "Hub ID"
// @Param transfer_id query string false "Transfer ID"
// @Param lot_id query string false "Lot ID"
// @Param since query string false "RFC3339 timestamp"
// @Param limit query int false "Limit"
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/events [get]
func (h *InventoryHandler) QueryEventsDoc() {}

// ListIncidents godoc
// @Summary List incidents
// @Tags Audit
// @Produce json
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/incidents [get]
func (h *InventoryHandler) ListIncidentsDoc() {}

// GetTelemetry godoc
// @Summary Telemetry snapshot
// @Description Rolling assignment latency, transfer duration, alert resolution, RMA rate and cover trends
// @Tags Reporting
// @Produce json
// @Success 200 {object} object{success=bool,data=object}
// @Router /api/telemetry [get]
func (h *InventoryHandler) GetTelemetryDoc() {}
