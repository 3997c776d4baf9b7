package query

import (
	"context"
	"fmt"

	"github.com/tair/taghub/internal/inventory/alert"
	"github.com/tair/taghub/internal/inventory/domain"
)

// GetAlertsQuery represents the query to evaluate stock alerts.
// An empty HubID evaluates every hub.
type GetAlertsQuery struct {
	HubID string
}

// GetAlertsHandler handles get alerts query
type GetAlertsHandler struct {
	store domain.Store
	clock domain.Clock
}

// NewGetAlertsHandler creates a new get alerts handler
func NewGetAlertsHandler(store domain.Store, clock domain.Clock) *GetAlertsHandler {
	return &GetAlertsHandler{store: store, clock: clock}
}

// Handle executes the get alerts query. Inputs are read in one view; the
// evaluation itself runs after the view is released. With a hub filter,
// overdue transfers touching that hub at either end are included.
func (h *GetAlertsHandler) Handle(ctx context.Context, query GetAlertsQuery) (*alert.Report, error) {
	now := h.clock()

	var snapshots []alert.HubSnapshot
	var transfers []domain.Transfer
	err := h.store.View(ctx, func(tx domain.ReadTx) error {
		var err error
		snapshots, err = hubSnapshots(tx, query.HubID, now)
		if err != nil {
			return err
		}
		transfers, err = tx.ListTransfers(domain.TransferFilter{
			Status: domain.TransferStatusInTransit,
			HubID:  query.HubID,
		})
		if err != nil {
			return fmt.Errorf("failed to list transfers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := alert.Evaluate(snapshots, domain.CheckOverdue(transfers, now))
	return &report, nil
}
