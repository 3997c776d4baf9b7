package query

import (
	"context"

	"github.com/tair/taghub/internal/inventory/alert"
	"github.com/tair/taghub/internal/inventory/domain"
)

// GetHubSummaryQuery represents the query to get one hub's derived health
type GetHubSummaryQuery struct {
	HubID string
}

// HubSummaryHandler serves hub health summaries for one or all hubs
type HubSummaryHandler struct {
	store domain.Store
	clock domain.Clock
}

// NewHubSummaryHandler creates a new hub summary handler
func NewHubSummaryHandler(store domain.Store, clock domain.Clock) *HubSummaryHandler {
	return &HubSummaryHandler{store: store, clock: clock}
}

// Handle executes the get hub summary query
func (h *HubSummaryHandler) Handle(ctx context.Context, query GetHubSummaryQuery) (*alert.HubHealth, error) {
	if query.HubID == "" {
		return nil, domain.NewInvalidArgument("hub id is required")
	}
	summaries, err := h.summaries(ctx, query.HubID)
	if err != nil {
		return nil, err
	}
	return &summaries[0], nil
}

// List returns every hub summary ordered by hub id.
func (h *HubSummaryHandler) List(ctx context.Context) ([]alert.HubHealth, error) {
	return h.summaries(ctx, "")
}

func (h *HubSummaryHandler) summaries(ctx context.Context, hubID string) ([]alert.HubHealth, error) {
	now := h.clock()
	var snapshots []alert.HubSnapshot
	err := h.store.View(ctx, func(tx domain.ReadTx) error {
		var err error
		snapshots, err = hubSnapshots(tx, hubID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]alert.HubHealth, 0, len(snapshots))
	for _, s := range snapshots {
		summaries = append(summaries, alert.Summarize(s))
	}
	return summaries, nil
}
