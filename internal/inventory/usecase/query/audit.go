package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/taghub/internal/inventory/domain"
)

// QueryEventsQuery represents the query to search the event journal
type QueryEventsQuery struct {
	Type       domain.EventType
	TagID      string
	HubID      string
	TransferID string
	LotID      string
	Since      time.Time
	Limit      int
}

// QueryEventsHandler handles query events query
type QueryEventsHandler struct {
	store domain.Store
}

// NewQueryEventsHandler creates a new query events handler
func NewQueryEventsHandler(store domain.Store) *QueryEventsHandler {
	return &QueryEventsHandler{store: store}
}

// Handle returns the latest matching events in append order.
func (h *QueryEventsHandler) Handle(ctx context.Context, query QueryEventsQuery) ([]domain.Event, error) {
	filter := domain.EventFilter{
		Type:       query.Type,
		TagID:      query.TagID,
		HubID:      query.HubID,
		TransferID: query.TransferID,
		LotID:      query.LotID,
		Since:      query.Since,
		Limit:      clampLimit(query.Limit),
	}

	var journal []domain.Event
	err := h.store.View(ctx, func(tx domain.ReadTx) error {
		var err error
		journal, err = tx.ListEvents(filter)
		if err != nil {
			return fmt.Errorf("failed to list events: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if journal == nil {
		journal = []domain.Event{}
	}
	return journal, nil
}

// ListMovementsQuery represents the query to read the movement log
type ListMovementsQuery struct {
	TagID string
	HubID string
	Limit int
}

// ListMovementsHandler handles list movements query
type ListMovementsHandler struct {
	store domain.Store
}

// NewListMovementsHandler creates a new list movements handler
func NewListMovementsHandler(store domain.Store) *ListMovementsHandler {
	return &ListMovementsHandler{store: store}
}

// Handle executes the list movements query. A tag filter must name an
// existing tag.
func (h *ListMovementsHandler) Handle(ctx context.Context, query ListMovementsQuery) ([]domain.MovementLogEntry, error) {
	var entries []domain.MovementLogEntry
	err := h.store.View(ctx, func(tx domain.ReadTx) error {
		if query.TagID != "" {
			if _, err := lookup(tx.GetTag, "tag", query.TagID); err != nil {
				return err
			}
		}
		var err error
		entries, err = tx.ListMovements(domain.MovementFilter{
			TagID: query.TagID,
			HubID: query.HubID,
			Limit: clampLimit(query.Limit),
		})
		if err != nil {
			return fmt.Errorf("failed to list movements: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.MovementLogEntry{}
	}
	return entries, nil
}

// ListIncidentsHandler handles list incidents query
type ListIncidentsHandler struct {
	store domain.Store
}

// NewListIncidentsHandler creates a new list incidents handler
func NewListIncidentsHandler(store domain.Store) *ListIncidentsHandler {
	return &ListIncidentsHandler{store: store}
}

// Handle executes the list incidents query
func (h *ListIncidentsHandler) Handle(ctx context.Context) ([]domain.Incident, error) {
	var incidents []domain.Incident
	err := h.store.View(ctx, func(tx domain.ReadTx) error {
		var err error
		incidents, err = tx.ListIncidents()
		if err != nil {
			return fmt.Errorf("failed to list incidents: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if incidents == nil {
		incidents = []domain.Incident{}
	}
	return incidents, nil
}
