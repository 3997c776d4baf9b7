package query

import (
	"context"
	"fmt"

	"github.com/tair/taghub/internal/inventory/domain"
)

// ListTransfersQuery represents the query to list transfers
type ListTransfersQuery struct {
	Status domain.TransferStatus
	HubID  string
}

// ListTransfersHandler handles list transfers query
type ListTransfersHandler struct {
	store domain.Store
}

// NewListTransfersHandler creates a new list transfers handler
func NewListTransfersHandler(store domain.Store) *ListTransfersHandler {
	return &ListTransfersHandler{store: store}
}

// Handle executes the list transfers query
func (h *ListTransfersHandler) Handle(ctx context.Context, query ListTransfersQuery) ([]domain.Transfer, error) {
	switch query.Status {
	case "", domain.TransferStatusInTransit, domain.TransferStatusCompleted, domain.TransferStatusLost:
	default:
		return nil, domain.NewInvalidArgument("unknown transfer status %q", query.Status)
	}

	var transfers []domain.Transfer
	err := h.store.View(ctx, func(tx domain.ReadTx) error {
		var err error
		transfers, err = tx.ListTransfers(domain.TransferFilter{Status: query.Status, HubID: query.HubID})
		if err != nil {
			return fmt.Errorf("failed to list transfers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if transfers == nil {
		transfers = []domain.Transfer{}
	}
	return transfers, nil
}

// Get returns one transfer.
func (h *ListTransfersHandler) Get(ctx context.Context, transferID string) (*domain.Transfer, error) {
	var transfer *domain.Transfer
	err := h.store.View(ctx, func(tx domain.ReadTx) error {
		var err error
		transfer, err = lookup(tx.GetTransfer, "transfer", transferID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}
