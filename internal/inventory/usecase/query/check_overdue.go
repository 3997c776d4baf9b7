package query

import (
	"context"
	"fmt"

	"github.com/tair/taghub/internal/inventory/domain"
)

// CheckOverdueQuery represents the query to list overdue transfers
type CheckOverdueQuery struct {
	HubID string
}

// CheckOverdueHandler handles check overdue query
type CheckOverdueHandler struct {
	store domain.Store
	clock domain.Clock
}

// NewCheckOverdueHandler creates a new check overdue handler
func NewCheckOverdueHandler(store domain.Store, clock domain.Clock) *CheckOverdueHandler {
	return &CheckOverdueHandler{store: store, clock: clock}
}

// Handle executes the check overdue query. Nothing is cached: every call
// compares the current in-transit set against the clock.
func (h *CheckOverdueHandler) Handle(ctx context.Context, query CheckOverdueQuery) ([]domain.OverdueTransfer, error) {
	var transfers []domain.Transfer
	err := h.store.View(ctx, func(tx domain.ReadTx) error {
		var err error
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

	overdue := domain.CheckOverdue(transfers, h.clock())
	if overdue == nil {
		overdue = []domain.OverdueTransfer{}
	}
	return overdue, nil
}
