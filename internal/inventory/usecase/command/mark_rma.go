package command

import (
	"context"

	"github.com/tair/taghub/internal/inventory/domain"
)

// MarkRMACommand represents the command to pull a tag out of circulation
type MarkRMACommand struct {
	TagID  string
	Reason string
	Actor  domain.Actor
}

// MarkRMAHandler handles the RMA command
type MarkRMAHandler struct {
	store     domain.Store
	publisher domain.EventPublisher
	clock     domain.Clock
}

// NewMarkRMAHandler creates a new mark RMA handler
func NewMarkRMAHandler(store domain.Store, publisher domain.EventPublisher, clock domain.Clock) *MarkRMAHandler {
	return &MarkRMAHandler{store: store, publisher: publisher, clock: clock}
}

// Handle executes the mark RMA command
func (h *MarkRMAHandler) Handle(ctx context.Context, cmd MarkRMACommand) (*domain.Tag, error) {
	if cmd.Reason == "" {
		return nil, domain.NewInvalidArgument("an RMA reason is required")
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
		shipmentID := tag.ShipmentID()
		if err := tag.MarkRMA(now); err != nil {
			return err
		}
		if err := putTag(tx, tag); err != nil {
			return err
		}

		event = newEvent(domain.EventTagRMA, cmd.Actor, now)
		event.HubID = tag.HubID
		event.LotID = tag.LotID
		event.TagIDs = []string{tag.ID}
		payload := map[string]any{
			"reason":          cmd.Reason,
			"previous_status": previous,
		}
		if shipmentID != "" {
			payload["released_shipment_id"] = shipmentID
		}
		event.Payload = domain.NewPayload(payload)

		entry := movement(*tag, domain.MovementRMA, previous, cmd.Actor, now, cmd.Reason)
		return record(tx, event, []domain.MovementLogEntry{entry})
	})
	if err != nil {
		return nil, err
	}

	h.publisher.Publish(ctx, event)
	return tag, nil
}
