package command

import (
	"context"
	"fmt"

	"github.com/tair/taghub/internal/inventory/domain"
)

// ApplyTagCommand represents the command to mark a reserved tag as applied
type ApplyTagCommand struct {
	TagID string
	HubID string
	Actor domain.Actor
}

// ApplyTagHandler handles tag application command
type ApplyTagHandler struct {
	store     domain.Store
	publisher domain.EventPublisher
	clock     domain.Clock
}

// NewApplyTagHandler creates a new apply tag handler
func NewApplyTagHandler(store domain.Store, publisher domain.EventPublisher, clock domain.Clock) *ApplyTagHandler {
	return &ApplyTagHandler{store: store, publisher: publisher, clock: clock}
}

// Handle executes the apply tag command and counts the tag in the hub's
// usage for the current day.
func (h *ApplyTagHandler) Handle(ctx context.Context, cmd ApplyTagCommand) (*domain.Tag, error) {
	if cmd.HubID == "" {
		return nil, domain.NewInvalidArgument("hub id is required")
	}

	now := h.clock()
	var tag *domain.Tag
	var event domain.Event
	err := h.store.Update(ctx, func(tx domain.Tx) error {
		var err error
		tag, err = loadTag(tx, cmd.TagID)
		if err != nil {
			return err
		}

		previous := tag.Status
		if err := tag.Apply(cmd.HubID, now); err != nil {
			return err
		}
		if err := putTag(tx, tag); err != nil {
			return err
		}
		if err := tx.AddUsage(tag.HubID, domain.UsageDay(now), 1); err != nil {
			return fmt.Errorf("failed to record usage: %w", err)
		}

		event = newEvent(domain.EventTagApplied, cmd.Actor, now)
		event.HubID = tag.HubID
		event.LotID = tag.LotID
		event.TagIDs = []string{tag.ID}
		event.Payload = domain.NewPayload(map[string]any{
			"shipment_id": tag.ShipmentID(),
		})

		entry := movement(*tag, domain.MovementApplied, previous, cmd.Actor, now, "shipment "+tag.ShipmentID())
		return record(tx, event, []domain.MovementLogEntry{entry})
	})
	if err != nil {
		return nil, err
	}

	h.publisher.Publish(ctx, event)
	return tag, nil
}
