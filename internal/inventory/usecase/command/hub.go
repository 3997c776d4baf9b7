package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/tair/taghub/internal/inventory/domain"
)

// CreateHubCommand represents the command to register a hub
type CreateHubCommand struct {
	ID                   string
	Name                 string
	Threshold            int
	DaysOfCoverThreshold float64
	Actor                domain.Actor
}

// CreateHubHandler handles hub creation command
type CreateHubHandler struct {
	store    domain.Store
	clock    domain.Clock
	settings Settings
}

// NewCreateHubHandler creates a new create hub handler
func NewCreateHubHandler(store domain.Store, clock domain.Clock, settings Settings) *CreateHubHandler {
	return &CreateHubHandler{store: store, clock: clock, settings: settings}
}

// Handle executes the create hub command
func (h *CreateHubHandler) Handle(ctx context.Context, cmd CreateHubCommand) (*domain.Hub, error) {
	if cmd.ID == "" {
		return nil, domain.NewInvalidArgument("hub id is required")
	}
	if cmd.Name == "" {
		return nil, domain.NewInvalidArgument("hub name is required")
	}
	if cmd.Threshold < 0 {
		return nil, domain.NewInvalidArgument("threshold cannot be negative")
	}
	if cmd.DaysOfCoverThreshold < 0 {
		return nil, domain.NewInvalidArgument("days of cover threshold cannot be negative")
	}

	doc := cmd.DaysOfCoverThreshold
	if doc == 0 {
		doc = h.settings.DefaultDaysOfCover
	}

	now := h.clock()
	hub := &domain.Hub{
		ID:                   cmd.ID,
		Name:                 cmd.Name,
		Threshold:            cmd.Threshold,
		DaysOfCoverThreshold: doc,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err := h.store.Update(ctx, func(tx domain.Tx) error {
		if _, err := tx.GetHub(cmd.ID); err == nil {
			return domain.NewInvalidArgument("hub %s already exists", cmd.ID)
		} else if !errors.Is(err, domain.ErrRecordNotFound) {
			return fmt.Errorf("failed to check hub: %w", err)
		}
		if err := tx.PutHub(*hub); err != nil {
			return fmt.Errorf("failed to create hub: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hub, nil
}

// UpdateThresholdCommand represents the command to change hub alert thresholds.
// Nil fields are left unchanged.
type UpdateThresholdCommand struct {
	HubID                string
	Threshold            *int
	DaysOfCoverThreshold *float64
	Actor                domain.Actor
}

// UpdateThresholdHandler handles threshold update command
type UpdateThresholdHandler struct {
	store     domain.Store
	publisher domain.EventPublisher
	clock     domain.Clock
}

// NewUpdateThresholdHandler creates a new update threshold handler
func NewUpdateThresholdHandler(store domain.Store, publisher domain.EventPublisher, clock domain.Clock) *UpdateThresholdHandler {
	return &UpdateThresholdHandler{store: store, publisher: publisher, clock: clock}
}

// Handle executes the update threshold command. Alerts are derived on read,
// so nothing else needs recomputing here.
func (h *UpdateThresholdHandler) Handle(ctx context.Context, cmd UpdateThresholdCommand) (*domain.Hub, error) {
	if cmd.Threshold == nil && cmd.DaysOfCoverThreshold == nil {
		return nil, domain.NewInvalidArgument("threshold or days of cover threshold is required")
	}
	if cmd.Threshold != nil && *cmd.Threshold < 0 {
		return nil, domain.NewInvalidArgument("threshold cannot be negative")
	}
	if cmd.DaysOfCoverThreshold != nil && *cmd.DaysOfCoverThreshold <= 0 {
		return nil, domain.NewInvalidArgument("days of cover threshold must be positive")
	}

	now := h.clock()
	var hub *domain.Hub
	var event domain.Event
	err := h.store.Update(ctx, func(tx domain.Tx) error {
		var err error
		hub, err = loadHub(tx, cmd.HubID)
		if err != nil {
			return err
		}

		payload := map[string]any{
			"previous_threshold":               hub.Threshold,
			"previous_days_of_cover_threshold": hub.DaysOfCoverThreshold,
		}
		if cmd.Threshold != nil {
			hub.Threshold = *cmd.Threshold
		}
		if cmd.DaysOfCoverThreshold != nil {
			hub.DaysOfCoverThreshold = *cmd.DaysOfCoverThreshold
		}
		hub.UpdatedAt = now
		payload["threshold"] = hub.Threshold
		payload["days_of_cover_threshold"] = hub.DaysOfCoverThreshold

		if err := tx.PutHub(*hub); err != nil {
			return fmt.Errorf("failed to update hub: %w", err)
		}

		event = newEvent(domain.EventThresholdUpdated, cmd.Actor, now)
		event.HubID = hub.ID
		event.Payload = domain.NewPayload(payload)
		return record(tx, event, nil)
	})
	if err != nil {
		return nil, err
	}

	h.publisher.Publish(ctx, event)
	return hub, nil
}

// RecordUsageCommand represents the command to import a historical applied count
type RecordUsageCommand struct {
	HubID   string
	Day     string
	Applied int
	Actor   domain.Actor
}

// RecordUsageHandler handles usage import command
type RecordUsageHandler struct {
	store domain.Store
	clock domain.Clock
}

// NewRecordUsageHandler creates a new record usage handler
func NewRecordUsageHandler(store domain.Store, clock domain.Clock) *RecordUsageHandler {
	return &RecordUsageHandler{store: store, clock: clock}
}

// Handle adds applied counts to a past or current day of a hub's usage history.
func (h *RecordUsageHandler) Handle(ctx context.Context, cmd RecordUsageCommand) (*domain.HubUsage, error) {
	if cmd.Applied < 1 {
		return nil, domain.NewInvalidArgument("applied count must be at least 1, got %d", cmd.Applied)
	}
	day, err := domain.ParseUsageDay(cmd.Day)
	if err != nil {
		return nil, domain.NewInvalidArgument("day %q is not a YYYY-MM-DD date", cmd.Day)
	}
	if domain.UsageDay(day) > domain.UsageDay(h.clock()) {
		return nil, domain.NewInvalidArgument("day %s is in the future", cmd.Day)
	}

	usage := &domain.HubUsage{HubID: cmd.HubID, Day: domain.UsageDay(day)}
	err = h.store.Update(ctx, func(tx domain.Tx) error {
		if _, err := loadHub(tx, cmd.HubID); err != nil {
			return err
		}
		if err := tx.AddUsage(usage.HubID, usage.Day, cmd.Applied); err != nil {
			return fmt.Errorf("failed to record usage: %w", err)
		}
		total, err := tx.UsageSince(usage.HubID, usage.Day)
		if err != nil {
			return fmt.Errorf("failed to read usage: %w", err)
		}
		later, err := tx.UsageSince(usage.HubID, domain.UsageDay(day.AddDate(0, 0, 1)))
		if err != nil {
			return fmt.Errorf("failed to read usage: %w", err)
		}
		usage.Applied = total - later
		return nil
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}
