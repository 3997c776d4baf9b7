package query

import (
	"context"
	"fmt"

	"github.com/tair/taghub/internal/inventory/domain"
)

// ValidateStockQuery represents a capacity pre-check before a reservation
type ValidateStockQuery struct {
	HubID    string
	Required int
}

// StockValidation is the answer to a capacity pre-check.
type StockValidation struct {
	HubID                string `json:"hub_id"`
	Required             int    `json:"required"`
	Available            int    `json:"available"`
	Sufficient           bool   `json:"sufficient"`
	Shortfall            int    `json:"shortfall,omitempty"`
	AlternativeHubID     string `json:"alternative_hub_id,omitempty"`
	AlternativeAvailable int    `json:"alternative_available,omitempty"`
}

// ValidateStockHandler handles validate stock query
type ValidateStockHandler struct {
	store domain.Store
}

// NewValidateStockHandler creates a new validate stock handler
func NewValidateStockHandler(store domain.Store) *ValidateStockHandler {
	return &ValidateStockHandler{store: store}
}

// Handle executes the validate stock query. Available counts free stock
// outside quarantined lots. Nothing is reserved.
func (h *ValidateStockHandler) Handle(ctx context.Context, query ValidateStockQuery) (*StockValidation, error) {
	if query.Required < 1 {
		return nil, domain.NewInvalidArgument("required quantity must be at least 1, got %d", query.Required)
	}

	result := &StockValidation{HubID: query.HubID, Required: query.Required}
	err := h.store.View(ctx, func(tx domain.ReadTx) error {
		if _, err := lookup(tx.GetHub, "hub", query.HubID); err != nil {
			return err
		}
		counts, err := tx.CountTags(query.HubID)
		if err != nil {
			return fmt.Errorf("failed to count tags: %w", err)
		}
		result.Available = counts.AssignableStock()
		result.Sufficient = result.Available >= query.Required
		if result.Sufficient {
			return nil
		}

		result.Shortfall = query.Required - result.Available
		result.AlternativeHubID, result.AlternativeAvailable, err = domain.FindAlternativeHub(tx, query.Required, query.HubID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
