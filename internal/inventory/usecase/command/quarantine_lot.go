package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/tair/taghub/internal/inventory/domain"
)

// QuarantineLotCommand represents the command to hold a lot
type QuarantineLotCommand struct {
	LotID  string
	Reason string
	Actor  domain.Actor
}

// QuarantineLotHandler handles lot quarantine command
type QuarantineLotHandler struct {
	store     domain.Store
	publisher domain.EventPublisher
	clock     domain.Clock
}

// NewQuarantineLotHandler creates a new quarantine lot handler
func NewQuarantineLotHandler(store domain.Store, publisher domain.EventPublisher, clock domain.Clock) *QuarantineLotHandler {
	return &QuarantineLotHandler{store: store, publisher: publisher, clock: clock}
}

// Handle executes the quarantine lot command. Tags keep their status; the
// hold only removes them from assignment and transfer candidate pools.
func (h *QuarantineLotHandler) Handle(ctx context.Context, cmd QuarantineLotCommand) (*domain.QuarantinedLot, error) {
	if cmd.LotID == "" {
		return nil, domain.NewInvalidArgument("lot id is required")
	}
	if cmd.Reason == "" {
		return nil, domain.NewInvalidArgument("a quarantine reason is required")
	}

	now := h.clock()
	lot := domain.QuarantinedLot{
		LotID:         cmd.LotID,
		Reason:        cmd.Reason,
		ActorID:       cmd.Actor.ID,
		QuarantinedAt: now,
	}

	var event domain.Event
	err := h.store.Update(ctx, func(tx domain.Tx) error {
		existing, err := tx.GetQuarantine(cmd.LotID)
		if err == nil {
			return &domain.Error{
				Code:    domain.CodeInvalidStateTransition,
				Message: fmt.Sprintf("lot %s is already quarantined since %s: %s", cmd.LotID, existing.QuarantinedAt.Format("2006-01-02"), existing.Reason),
			}
		}
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return fmt.Errorf("failed to load quarantine: %w", err)
		}

		tags, err := tx.ListTags(domain.TagFilter{LotID: cmd.LotID})
		if err != nil {
			return fmt.Errorf("failed to list lot tags: %w", err)
		}
		if len(tags) == 0 {
			return domain.NewNotFound("lot", cmd.LotID)
		}

		if err := tx.PutQuarantine(lot); err != nil {
			return fmt.Errorf("failed to save quarantine: %w", err)
		}

		affected := make([]string, 0, len(tags))
		hubs := make(map[string]int)
		for _, tag := range tags {
			if tag.Status.IsTerminal() {
				continue
			}
			affected = append(affected, tag.ID)
			hubs[tag.HubID]++
		}

		event = newEvent(domain.EventLotQuarantined, cmd.Actor, now)
		event.LotID = cmd.LotID
		event.TagIDs = affected
		event.Payload = domain.NewPayload(map[string]any{
			"reason":         cmd.Reason,
			"affected_count": len(affected),
			"hubs":           hubs,
		})
		return record(tx, event, nil)
	})
	if err != nil {
		return nil, err
	}

	h.publisher.Publish(ctx, event)
	return &lot, nil
}
