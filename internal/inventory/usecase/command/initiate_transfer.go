package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/taghub/internal/inventory/domain"
)

// InitiateTransferCommand represents the command to move tags between hubs
type InitiateTransferCommand struct {
	FromHubID string
	ToHubID   string
	Quantity  int
	// TagIDs restricts the candidate pool to specific tags.
	TagIDs []string
	Reason string
	ETA    *time.Time
	Actor  domain.Actor
}

// InitiateTransferHandler handles transfer initiation command
type InitiateTransferHandler struct {
	store     domain.Store
	publisher domain.EventPublisher
	clock     domain.Clock
	settings  Settings
}

// NewInitiateTransferHandler creates a new initiate transfer handler
func NewInitiateTransferHandler(store domain.Store, publisher domain.EventPublisher, clock domain.Clock, settings Settings) *InitiateTransferHandler {
	return &InitiateTransferHandler{store: store, publisher: publisher, clock: clock, settings: settings}
}

// Handle executes the initiate transfer command. Candidates are selected and
// dispatched in the same transaction; a shortfall leaves every tag untouched.
func (h *InitiateTransferHandler) Handle(ctx context.Context, cmd InitiateTransferCommand) (*domain.Transfer, error) {
	quantity := cmd.Quantity
	if quantity == 0 && len(cmd.TagIDs) > 0 {
		quantity = len(cmd.TagIDs)
	}
	if quantity < 1 {
		return nil, domain.NewInvalidArgument("quantity must be at least 1, got %d", cmd.Quantity)
	}
	if h.settings.MaxTransferQuantity > 0 && quantity > h.settings.MaxTransferQuantity {
		return nil, domain.NewInvalidArgument("quantity %d exceeds the maximum of %d per transfer", quantity, h.settings.MaxTransferQuantity)
	}
	if cmd.FromHubID == cmd.ToHubID {
		return nil, domain.NewInvalidArgument("origin and destination hub are both %s", cmd.FromHubID)
	}

	now := h.clock()
	eta := now.Add(h.settings.DefaultTransferETA)
	if cmd.ETA != nil {
		if !cmd.ETA.After(now) {
			return nil, domain.NewInvalidArgument("eta %s is not in the future", cmd.ETA.Format(time.RFC3339))
		}
		eta = cmd.ETA.UTC()
	}

	var transfer *domain.Transfer
	var event domain.Event
	err := h.store.Update(ctx, func(tx domain.Tx) error {
		if _, err := loadHub(tx, cmd.FromHubID); err != nil {
			return err
		}
		if _, err := loadHub(tx, cmd.ToHubID); err != nil {
			return err
		}

		candidates, err := transferCandidates(tx, cmd.FromHubID, cmd.TagIDs)
		if err != nil {
			return err
		}
		if len(candidates) < quantity {
			return insufficientStock(tx, cmd.FromHubID, cmd.ToHubID, len(candidates), quantity)
		}

		transfer = &domain.Transfer{
			ID:          newID(),
			FromHubID:   cmd.FromHubID,
			ToHubID:     cmd.ToHubID,
			Quantity:    quantity,
			Reason:      cmd.Reason,
			Status:      domain.TransferStatusInTransit,
			ETA:         eta,
			InitiatedAt: now,
			InitiatedBy: cmd.Actor.ID,
		}

		selected := candidates[:quantity]
		movements := make([]domain.MovementLogEntry, 0, quantity)
		for i := range selected {
			tag := &selected[i]
			if err := tag.Dispatch(now); err != nil {
				return err
			}
			if err := putTag(tx, tag); err != nil {
				return err
			}
			transfer.TagIDs = append(transfer.TagIDs, tag.ID)
			movements = append(movements, movement(*tag, domain.MovementTransferred, domain.TagStatusStock, cmd.Actor, now,
				fmt.Sprintf("transfer %s to %s", transfer.ID, cmd.ToHubID)))
		}
		if err := tx.PutTransfer(*transfer); err != nil {
			return fmt.Errorf("failed to save transfer: %w", err)
		}

		event = newEvent(domain.EventTagTransferred, cmd.Actor, now)
		event.HubID = cmd.FromHubID
		event.TransferID = transfer.ID
		event.TagIDs = transfer.TagIDs
		event.Payload = domain.NewPayload(map[string]any{
			"from_hub_id": cmd.FromHubID,
			"to_hub_id":   cmd.ToHubID,
			"quantity":    quantity,
			"eta":         eta,
			"reason":      cmd.Reason,
		})
		return record(tx, event, movements)
	})
	if err != nil {
		return nil, err
	}

	h.publisher.Publish(ctx, event)
	return transfer, nil
}

// transferCandidates returns the stock tags at a hub whose lot is not on
// hold, oldest first.
func transferCandidates(tx domain.ReadTx, hubID string, tagIDs []string) ([]domain.Tag, error) {
	tags, err := tx.ListTags(domain.TagFilter{
		HubID:    hubID,
		Statuses: []domain.TagStatus{domain.TagStatusStock},
		IDs:      tagIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate tags: %w", err)
	}

	held := make(map[string]bool)
	candidates := tags[:0]
	for _, tag := range tags {
		quarantined, seen := held[tag.LotID]
		if !seen {
			quarantined, err = domain.IsLotQuarantined(tx, tag.LotID)
			if err != nil {
				return nil, fmt.Errorf("failed to check quarantine: %w", err)
			}
			held[tag.LotID] = quarantined
		}
		if !quarantined {
			candidates = append(candidates, tag)
		}
	}
	return candidates, nil
}

func insufficientStock(tx domain.ReadTx, fromHubID, toHubID string, available, requested int) error {
	err := &domain.Error{
		Code:      domain.CodeInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock at %s: %d eligible tags available, %d requested (short by %d)", fromHubID, available, requested, requested-available),
		Available: available,
		Requested: requested,
	}
	if available > 0 {
		err.Remedy = fmt.Sprintf("reduce the transfer to %d tags", available)
	}

	alternative, altAvailable, lookupErr := domain.FindAlternativeHub(tx, requested, fromHubID, toHubID)
	if lookupErr != nil {
		return lookupErr
	}
	if alternative != "" {
		err.AlternativeHubID = alternative
		suggestion := fmt.Sprintf("hub %s has %d assignable tags", alternative, altAvailable)
		if err.Remedy == "" {
			err.Remedy = suggestion
		} else {
			err.Remedy += ", or " + suggestion
		}
	}
	return err
}
