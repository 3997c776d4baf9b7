package command

import (
	"context"
	"fmt"

	"github.com/tair/taghub/internal/inventory/domain"
	"github.com/tair/taghub/pkg/logger"
)

// UnreserveTagCommand represents the command to return a reserved tag to stock
type UnreserveTagCommand struct {
	TagID      string
	Reason     string
	IsOverride bool
	Actor      domain.Actor
}

// UnreserveTagHandler handles tag unreservation command
type UnreserveTagHandler struct {
	store     domain.Store
	publisher domain.EventPublisher
	jobs      domain.JobStatusChecker
	clock     domain.Clock
}

// NewUnreserveTagHandler creates a new unreserve tag handler
func NewUnreserveTagHandler(store domain.Store, publisher domain.EventPublisher, jobs domain.JobStatusChecker, clock domain.Clock) *UnreserveTagHandler {
	return &UnreserveTagHandler{store: store, publisher: publisher, jobs: jobs, clock: clock}
}

// Handle executes the unreserve tag command. The job status is queried
// outside the write transaction; the reservation is then re-validated
// before it is released.
func (h *UnreserveTagHandler) Handle(ctx context.Context, cmd UnreserveTagCommand) (*domain.Tag, error) {
	now := h.clock()

	var shipmentID string
	err := h.store.View(ctx, func(tx domain.ReadTx) error {
		tag, err := loadTag(tx, cmd.TagID)
		if err != nil {
			return err
		}
		candidate := *tag
		if err := candidate.Unreserve(now); err != nil {
			return err
		}
		shipmentID = tag.ShipmentID()
		return nil
	})
	if err != nil {
		return nil, err
	}

	jobStarted, err := h.jobs.HasStarted(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check fulfillment job status: %w", err)
	}
	if jobStarted && !(cmd.IsOverride && cmd.Actor.CanOverride) {
		return nil, overrideRequired(cmd, shipmentID)
	}

	var tag *domain.Tag
	var event domain.Event
	err = h.store.Update(ctx, func(tx domain.Tx) error {
		var err error
		tag, err = loadTag(tx, cmd.TagID)
		if err != nil {
			return err
		}
		if tag.Status == domain.TagStatusReserved && tag.ShipmentID() != shipmentID {
			return &domain.Error{
				Code:          domain.CodeInvalidStateTransition,
				Message:       fmt.Sprintf("cannot unreserve tag %s: it was reassigned to shipment %s while the job status was checked", tag.ID, tag.ShipmentID()),
				Remedy:        "retry the unreserve",
				CurrentStatus: tag.Status,
			}
		}

		previous := tag.Status
		if err := tag.Unreserve(now); err != nil {
			return err
		}
		if err := putTag(tx, tag); err != nil {
			return err
		}

		event = newEvent(domain.EventTagUnreserved, cmd.Actor, now)
		event.HubID = tag.HubID
		event.LotID = tag.LotID
		event.TagIDs = []string{tag.ID}
		event.Payload = domain.NewPayload(map[string]any{
			"shipment_id":     shipmentID,
			"reason":          cmd.Reason,
			"was_job_started": jobStarted,
			"is_override":     cmd.IsOverride,
		})

		entry := movement(*tag, domain.MovementUnreserved, previous, cmd.Actor, now, cmd.Reason)
		return record(tx, event, []domain.MovementLogEntry{entry})
	})
	if err != nil {
		return nil, err
	}

	if jobStarted {
		logger.WithContext(ctx).Warn().
			Str("tag_id", tag.ID).
			Str("shipment_id", shipmentID).
			Str("actor_id", cmd.Actor.ID).
			Str("reason", cmd.Reason).
			Msg("Tag unreserved by override after fulfillment job started")
	}

	h.publisher.Publish(ctx, event)
	return tag, nil
}

func overrideRequired(cmd UnreserveTagCommand, shipmentID string) *domain.Error {
	err := &domain.Error{
		Code:          domain.CodeOverrideRequired,
		Message:       fmt.Sprintf("cannot unreserve tag %s: the fulfillment job for shipment %s has already started", cmd.TagID, shipmentID),
		Remedy:        "retry with an override from a supervisor",
		CurrentStatus: domain.TagStatusReserved,
	}
	if cmd.IsOverride {
		err.Remedy = fmt.Sprintf("actor %s is not authorized to override; ask a supervisor", cmd.Actor.ID)
	}
	return err
}
