package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/tair/taghub/internal/inventory/domain"
)

// ReleaseQuarantineCommand represents the command to resolve a lot quarantine
type ReleaseQuarantineCommand struct {
	LotID  string
	Action domain.QuarantineAction
	Reason string
	Actor  domain.Actor
}

// QuarantineResolution is the outcome of resolving a quarantine.
type QuarantineResolution struct {
	LotID  string                  `json:"lot_id"`
	Action domain.QuarantineAction `json:"action"`
	// TagIDs are the tags returned to the pool (release) or moved to rma.
	TagIDs []string `json:"tag_ids"`
}

// ReleaseQuarantineHandler handles quarantine resolution command
type ReleaseQuarantineHandler struct {
	store     domain.Store
	publisher domain.EventPublisher
	clock     domain.Clock
}

// NewReleaseQuarantineHandler creates a new release quarantine handler
func NewReleaseQuarantineHandler(store domain.Store, publisher domain.EventPublisher, clock domain.Clock) *ReleaseQuarantineHandler {
	return &ReleaseQuarantineHandler{store: store, publisher: publisher, clock: clock}
}

// Handle executes the release quarantine command
func (h *ReleaseQuarantineHandler) Handle(ctx context.Context, cmd ReleaseQuarantineCommand) (*QuarantineResolution, error) {
	if cmd.LotID == "" {
		return nil, domain.NewInvalidArgument("lot id is required")
	}
	if !cmd.Action.IsValid() {
		return nil, domain.NewInvalidArgument("unknown quarantine action %q, expected release or rma", cmd.Action)
	}

	now := h.clock()
	result := &QuarantineResolution{LotID: cmd.LotID, Action: cmd.Action, TagIDs: []string{}}
	var event domain.Event
	err := h.store.Update(ctx, func(tx domain.Tx) error {
		if _, err := tx.GetQuarantine(cmd.LotID); errors.Is(err, domain.ErrRecordNotFound) {
			return &domain.Error{
				Code:    domain.CodeNotFound,
				Message: fmt.Sprintf("lot %s is not quarantined", cmd.LotID),
			}
		} else if err != nil {
			return fmt.Errorf("failed to load quarantine: %w", err)
		}
		if err := tx.DeleteQuarantine(cmd.LotID); err != nil {
			return fmt.Errorf("failed to delete quarantine: %w", err)
		}

		tags, err := tx.ListTags(domain.TagFilter{LotID: cmd.LotID})
		if err != nil {
			return fmt.Errorf("failed to list lot tags: %w", err)
		}

		var movements []domain.MovementLogEntry
		for i := range tags {
			tag := &tags[i]
			if tag.Status.IsTerminal() {
				continue
			}
			if cmd.Action == domain.QuarantineActionRelease {
				result.TagIDs = append(result.TagIDs, tag.ID)
				continue
			}

			previous := tag.Status
			if err := tag.MarkRMA(now); err != nil {
				return err
			}
			if err := putTag(tx, tag); err != nil {
				return err
			}
			result.TagIDs = append(result.TagIDs, tag.ID)
			movements = append(movements, movement(*tag, domain.MovementRMA, previous, cmd.Actor, now, "quarantine: "+cmd.Reason))
		}

		event = newEvent(domain.EventLotQuarantineResolve, cmd.Actor, now)
		event.LotID = cmd.LotID
		event.TagIDs = result.TagIDs
		event.Payload = domain.NewPayload(map[string]any{
			"action": cmd.Action,
			"reason": cmd.Reason,
		})
		return record(tx, event, movements)
	})
	if err != nil {
		return nil, err
	}

	h.publisher.Publish(ctx, event)
	return result, nil
}
