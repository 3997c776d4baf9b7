package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/taghub/internal/inventory/domain"
)

// ConfirmArrivalCommand represents the command to land a transfer at its destination
type ConfirmArrivalCommand struct {
	TransferID string
	Notes      string
	Actor      domain.Actor
}

// ConfirmArrivalHandler handles transfer arrival command
type ConfirmArrivalHandler struct {
	store     domain.Store
	publisher domain.EventPublisher
	clock     domain.Clock
}

// NewConfirmArrivalHandler creates a new confirm arrival handler
func NewConfirmArrivalHandler(store domain.Store, publisher domain.EventPublisher, clock domain.Clock) *ConfirmArrivalHandler {
	return &ConfirmArrivalHandler{store: store, publisher: publisher, clock: clock}
}

// Handle executes the confirm arrival command
func (h *ConfirmArrivalHandler) Handle(ctx context.Context, cmd ConfirmArrivalCommand) (*domain.Transfer, error) {
	now := h.clock()
	var transfer *domain.Transfer
	var event domain.Event
	err := h.store.Update(ctx, func(tx domain.Tx) error {
		var err error
		transfer, err = loadTransfer(tx, cmd.TransferID)
		if err != nil {
			return err
		}
		if err := requireInTransit(transfer, "confirm arrival of"); err != nil {
			return err
		}

		movements := make([]domain.MovementLogEntry, 0, len(transfer.TagIDs))
		arrivedIDs := make([]string, 0, len(transfer.TagIDs))
		withdrawnIDs := []string{}
		for _, id := range transfer.TagIDs {
			tag, err := loadTag(tx, id)
			if err != nil {
				return err
			}
			// RMA'd while travelling: it stays out of circulation.
			if tag.Status == domain.TagStatusRMA {
				withdrawnIDs = append(withdrawnIDs, id)
				continue
			}
			if err := tag.Arrive(transfer.ToHubID, now); err != nil {
				return err
			}
			if err := putTag(tx, tag); err != nil {
				return err
			}
			notes := fmt.Sprintf("transfer %s from %s", transfer.ID, transfer.FromHubID)
			if cmd.Notes != "" {
				notes += ": " + cmd.Notes
			}
			movements = append(movements, movement(*tag, domain.MovementArrived, domain.TagStatusInTransit, cmd.Actor, now, notes))
			arrivedIDs = append(arrivedIDs, id)
		}

		arrived := now
		transfer.Status = domain.TransferStatusCompleted
		transfer.ArrivedAt = &arrived
		if err := tx.PutTransfer(*transfer); err != nil {
			return fmt.Errorf("failed to save transfer: %w", err)
		}

		event = newEvent(domain.EventTransferArrived, cmd.Actor, now)
		event.HubID = transfer.ToHubID
		event.TransferID = transfer.ID
		event.TagIDs = arrivedIDs
		event.Payload = domain.NewPayload(map[string]any{
			"from_hub_id":       transfer.FromHubID,
			"to_hub_id":         transfer.ToHubID,
			"quantity":          transfer.Quantity,
			"duration_seconds":  transfer.Duration().Seconds(),
			"late":              now.After(transfer.ETA),
			"withdrawn_tag_ids": withdrawnIDs,
		})
		return record(tx, event, movements)
	})
	if err != nil {
		return nil, err
	}

	h.publisher.Publish(ctx, event)
	return transfer, nil
}

func requireInTransit(t *domain.Transfer, action string) error {
	if t.Status == domain.TransferStatusInTransit {
		return nil
	}
	var when *time.Time
	switch t.Status {
	case domain.TransferStatusCompleted:
		when = t.ArrivedAt
	case domain.TransferStatusLost:
		when = t.ResolvedAt
	}
	message := fmt.Sprintf("cannot %s transfer %s: transfer is %s", action, t.ID, t.Status)
	if when != nil {
		message += " since " + when.UTC().Format(time.RFC3339)
	}
	return &domain.Error{Code: domain.CodeInvalidStateTransition, Message: message}
}
