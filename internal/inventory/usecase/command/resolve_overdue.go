package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/taghub/internal/inventory/domain"
	"github.com/tair/taghub/pkg/logger"
)

// ResolveOverdueCommand represents the operator decision on an overdue transfer
type ResolveOverdueCommand struct {
	TransferID string
	Resolution domain.OverdueResolution
	Notes      string
	Actor      domain.Actor
}

// OverdueResolutionResult is the outcome of resolving an overdue transfer.
type OverdueResolutionResult struct {
	Transfer *domain.Transfer `json:"transfer"`
	Incident *domain.Incident `json:"incident,omitempty"`
}

// ResolveOverdueHandler handles overdue transfer resolution command
type ResolveOverdueHandler struct {
	store     domain.Store
	publisher domain.EventPublisher
	clock     domain.Clock
	arrival   *ConfirmArrivalHandler
}

// NewResolveOverdueHandler creates a new resolve overdue handler
func NewResolveOverdueHandler(store domain.Store, publisher domain.EventPublisher, clock domain.Clock, arrival *ConfirmArrivalHandler) *ResolveOverdueHandler {
	return &ResolveOverdueHandler{store: store, publisher: publisher, clock: clock, arrival: arrival}
}

// Handle executes the resolve overdue command. Arrival is delegated to the
// arrival handler; a loss terminates every tag and raises an incident.
func (h *ResolveOverdueHandler) Handle(ctx context.Context, cmd ResolveOverdueCommand) (*OverdueResolutionResult, error) {
	switch cmd.Resolution {
	case domain.ResolutionArrived:
		transfer, err := h.arrival.Handle(ctx, ConfirmArrivalCommand{
			TransferID: cmd.TransferID,
			Notes:      cmd.Notes,
			Actor:      cmd.Actor,
		})
		if err != nil {
			return nil, err
		}
		return &OverdueResolutionResult{Transfer: transfer}, nil
	case domain.ResolutionLost:
		return h.markLost(ctx, cmd)
	}
	return nil, domain.NewInvalidArgument("unknown resolution %q, expected arrived or lost", cmd.Resolution)
}

func (h *ResolveOverdueHandler) markLost(ctx context.Context, cmd ResolveOverdueCommand) (*OverdueResolutionResult, error) {
	now := h.clock()
	var transfer *domain.Transfer
	var incident domain.Incident
	var event domain.Event
	err := h.store.Update(ctx, func(tx domain.Tx) error {
		var err error
		transfer, err = loadTransfer(tx, cmd.TransferID)
		if err != nil {
			return err
		}
		if err := requireInTransit(transfer, "mark lost"); err != nil {
			return err
		}
		overdue := domain.CheckOverdue([]domain.Transfer{*transfer}, now)
		if len(overdue) == 0 {
			return &domain.Error{
				Code:    domain.CodeInvalidStateTransition,
				Message: fmt.Sprintf("cannot mark transfer %s lost: it is not overdue until %s", transfer.ID, transfer.ETA.UTC().Format(time.RFC3339)),
				Remedy:  "wait for the ETA to pass or confirm arrival",
			}
		}
		daysOverdue := overdue[0].DaysPastDue

		movements := make([]domain.MovementLogEntry, 0, len(transfer.TagIDs))
		lostIDs := make([]string, 0, len(transfer.TagIDs))
		for _, id := range transfer.TagIDs {
			tag, err := loadTag(tx, id)
			if err != nil {
				return err
			}
			if tag.Status == domain.TagStatusRMA {
				continue
			}
			if err := tag.MarkLost(now); err != nil {
				return err
			}
			if err := putTag(tx, tag); err != nil {
				return err
			}
			movements = append(movements, movement(*tag, domain.MovementLost, domain.TagStatusInTransit, cmd.Actor, now,
				fmt.Sprintf("transfer %s lost", transfer.ID)))
			lostIDs = append(lostIDs, id)
		}

		resolved := now
		transfer.Status = domain.TransferStatusLost
		transfer.ResolvedAt = &resolved
		if err := tx.PutTransfer(*transfer); err != nil {
			return fmt.Errorf("failed to save transfer: %w", err)
		}

		message := fmt.Sprintf("Transfer %s of %d tags from %s to %s lost, %d days overdue",
			transfer.ID, transfer.Quantity, transfer.FromHubID, transfer.ToHubID, daysOverdue)
		if cmd.Notes != "" {
			message += ": " + cmd.Notes
		}
		incident = domain.Incident{
			ID:          newID(),
			Severity:    domain.IncidentSeverityHigh,
			TransferID:  transfer.ID,
			DaysOverdue: daysOverdue,
			Message:     message,
			ActorID:     cmd.Actor.ID,
			CreatedAt:   now,
		}
		if err := tx.AppendIncident(incident); err != nil {
			return fmt.Errorf("failed to append incident: %w", err)
		}

		event = newEvent(domain.EventIncidentCreated, cmd.Actor, now)
		event.HubID = transfer.ToHubID
		event.TransferID = transfer.ID
		event.TagIDs = lostIDs
		event.Payload = domain.NewPayload(map[string]any{
			"incident_id":  incident.ID,
			"severity":     incident.Severity,
			"days_overdue": daysOverdue,
			"from_hub_id":  transfer.FromHubID,
			"to_hub_id":    transfer.ToHubID,
			"quantity":     transfer.Quantity,
		})
		return record(tx, event, movements)
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Warn().
		Str("transfer_id", transfer.ID).
		Str("incident_id", incident.ID).
		Int("tags", len(transfer.TagIDs)).
		Int("days_overdue", incident.DaysOverdue).
		Msg("Transfer resolved as lost")

	h.publisher.Publish(ctx, event)
	return &OverdueResolutionResult{Transfer: transfer, Incident: &incident}, nil
}
