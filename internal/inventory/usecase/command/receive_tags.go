package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tair/taghub/internal/inventory/domain"
)

// ReceiveTagsCommand represents the command to receive a lot of tags into a hub
type ReceiveTagsCommand struct {
	HubID    string
	LotID    string
	Quantity int
	// TagIDs are explicit ids for the new tags. When empty, ids are generated.
	TagIDs    []string
	ExpiresAt *time.Time
	Notes     string
	Actor     domain.Actor
}

// ReceiveTagsHandler handles tag receipt command
type ReceiveTagsHandler struct {
	store     domain.Store
	publisher domain.EventPublisher
	clock     domain.Clock
	settings  Settings
}

// NewReceiveTagsHandler creates a new receive tags handler
func NewReceiveTagsHandler(store domain.Store, publisher domain.EventPublisher, clock domain.Clock, settings Settings) *ReceiveTagsHandler {
	return &ReceiveTagsHandler{store: store, publisher: publisher, clock: clock, settings: settings}
}

// Handle executes the receive tags command
func (h *ReceiveTagsHandler) Handle(ctx context.Context, cmd ReceiveTagsCommand) ([]domain.Tag, error) {
	ids, err := h.tagIDs(cmd)
	if err != nil {
		return nil, err
	}
	if cmd.LotID == "" {
		return nil, domain.NewInvalidArgument("lot id is required")
	}

	now := h.clock()
	if cmd.ExpiresAt != nil && !cmd.ExpiresAt.After(now) {
		return nil, domain.NewInvalidArgument("expiry %s is not in the future", cmd.ExpiresAt.Format(time.RFC3339))
	}

	var tags []domain.Tag
	var event domain.Event
	err = h.store.Update(ctx, func(tx domain.Tx) error {
		if _, err := loadHub(tx, cmd.HubID); err != nil {
			return err
		}

		movements := make([]domain.MovementLogEntry, 0, len(ids))
		tags = make([]domain.Tag, 0, len(ids))
		for _, id := range ids {
			if _, err := tx.GetTag(id); err == nil {
				return domain.NewInvalidArgument("tag %s already exists", id)
			} else if !errors.Is(err, domain.ErrRecordNotFound) {
				return fmt.Errorf("failed to check tag: %w", err)
			}

			tag := domain.Tag{
				ID:         id,
				LotID:      cmd.LotID,
				HubID:      cmd.HubID,
				Status:     domain.TagStatusStock,
				ReceivedAt: now,
				ExpiresAt:  cmd.ExpiresAt,
				Notes:      cmd.Notes,
				UpdatedAt:  now,
			}
			if err := putTag(tx, &tag); err != nil {
				return err
			}
			tags = append(tags, tag)
			movements = append(movements, movement(tag, domain.MovementReceived, "", cmd.Actor, now, cmd.Notes))
		}

		event = newEvent(domain.EventTagReceived, cmd.Actor, now)
		event.HubID = cmd.HubID
		event.LotID = cmd.LotID
		event.TagIDs = ids
		payload := map[string]any{"quantity": len(ids)}
		if cmd.ExpiresAt != nil {
			payload["expires_at"] = cmd.ExpiresAt.UTC()
		}
		event.Payload = domain.NewPayload(payload)

		return record(tx, event, movements)
	})
	if err != nil {
		return nil, err
	}

	h.publisher.Publish(ctx, event)
	return tags, nil
}

func (h *ReceiveTagsHandler) tagIDs(cmd ReceiveTagsCommand) ([]string, error) {
	if len(cmd.TagIDs) == 0 {
		if cmd.Quantity < 1 {
			return nil, domain.NewInvalidArgument("quantity must be at least 1, got %d", cmd.Quantity)
		}
		if h.settings.MaxReceiveQuantity > 0 && cmd.Quantity > h.settings.MaxReceiveQuantity {
			return nil, domain.NewInvalidArgument("quantity %d exceeds the maximum of %d per receipt", cmd.Quantity, h.settings.MaxReceiveQuantity)
		}
		ids := make([]string, cmd.Quantity)
		for i := range ids {
			ids[i] = newID()
		}
		return ids, nil
	}

	if cmd.Quantity != 0 && cmd.Quantity != len(cmd.TagIDs) {
		return nil, domain.NewInvalidArgument("quantity %d does not match %d explicit tag ids", cmd.Quantity, len(cmd.TagIDs))
	}
	seen := make(map[string]bool, len(cmd.TagIDs))
	for _, id := range cmd.TagIDs {
		if id == "" {
			return nil, domain.NewInvalidArgument("tag ids must not be empty")
		}
		if seen[id] {
			return nil, domain.NewInvalidArgument("duplicate tag id %s", id)
		}
		seen[id] = true
	}
	return append([]string(nil), cmd.TagIDs...), nil
}
