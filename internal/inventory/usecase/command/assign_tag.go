package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/taghub/internal/inventory/domain"
)

// AssignTagCommand represents the command to reserve a tag for a shipment
type AssignTagCommand struct {
	TagID      string
	ShipmentID string
	HubID      string
	Actor      domain.Actor
}

// AssignTagHandler handles tag assignment command
type AssignTagHandler struct {
	store     domain.Store
	publisher domain.EventPublisher
	clock     domain.Clock
}

// NewAssignTagHandler creates a new assign tag handler
func NewAssignTagHandler(store domain.Store, publisher domain.EventPublisher, clock domain.Clock) *AssignTagHandler {
	return &AssignTagHandler{store: store, publisher: publisher, clock: clock}
}

// Handle executes the assign tag command. The status check and the write
// happen in one transaction, so concurrent assigns of the same tag have a
// single winner and the others see the tag as already assigned.
func (h *AssignTagHandler) Handle(ctx context.Context, cmd AssignTagCommand) (*domain.Tag, error) {
	started := time.Now()
	if cmd.ShipmentID == "" {
		return nil, domain.NewInvalidArgument("shipment id is required")
	}
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
		assigned := *tag
		if err := assigned.Assign(cmd.ShipmentID, cmd.HubID, now); err != nil {
			return err
		}
		quarantined, err := domain.IsLotQuarantined(tx, tag.LotID)
		if err != nil {
			return fmt.Errorf("failed to check quarantine: %w", err)
		}
		if quarantined {
			return domain.QuarantinedLotError(tag, "assign")
		}
		tag = &assigned

		if err := putTag(tx, tag); err != nil {
			return err
		}

		event = newEvent(domain.EventTagAssigned, cmd.Actor, now)
		event.HubID = tag.HubID
		event.LotID = tag.LotID
		event.TagIDs = []string{tag.ID}
		event.Payload = domain.NewPayload(map[string]any{
			"shipment_id": cmd.ShipmentID,
			"latency_ms":  float64(time.Since(started).Microseconds()) / 1000,
		})

		entry := movement(*tag, domain.MovementAssigned, previous, cmd.Actor, now, "shipment "+cmd.ShipmentID)
		return record(tx, event, []domain.MovementLogEntry{entry})
	})
	if err != nil {
		return nil, err
	}

	h.publisher.Publish(ctx, event)
	return tag, nil
}
