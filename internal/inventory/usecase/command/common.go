package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tair/taghub/internal/inventory/domain"
)

// Settings carries tunables shared by command handlers.
type Settings struct {
	DefaultTransferETA  time.Duration
	DefaultDaysOfCover  float64
	MaxReceiveQuantity  int
	MaxTransferQuantity int
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		DefaultTransferETA:  domain.DefaultTransferETA,
		DefaultDaysOfCover:  domain.DefaultDaysOfCoverThreshold,
		MaxReceiveQuantity:  10000,
		MaxTransferQuantity: 10000,
	}
}

func newID() string {
	return uuid.NewString()
}

func loadTag(tx domain.ReadTx, id string) (*domain.Tag, error) {
	if id == "" {
		return nil, domain.NewInvalidArgument("tag id is required")
	}
	tag, err := tx.GetTag(id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, domain.NewNotFound("tag", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tag: %w", err)
	}
	return tag, nil
}

func loadHub(tx domain.ReadTx, id string) (*domain.Hub, error) {
	if id == "" {
		return nil, domain.NewInvalidArgument("hub id is required")
	}
	hub, err := tx.GetHub(id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, domain.NewNotFound("hub", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load hub: %w", err)
	}
	return hub, nil
}

func loadTransfer(tx domain.ReadTx, id string) (*domain.Transfer, error) {
	if id == "" {
		return nil, domain.NewInvalidArgument("transfer id is required")
	}
	transfer, err := tx.GetTransfer(id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, domain.NewNotFound("transfer", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transfer: %w", err)
	}
	return transfer, nil
}

func movement(tag domain.Tag, action domain.MovementAction, previous domain.TagStatus, actor domain.Actor, now time.Time, notes string) domain.MovementLogEntry {
	return domain.MovementLogEntry{
		ID:             newID(),
		TagID:          tag.ID,
		Action:         action,
		PreviousStatus: previous,
		NewStatus:      tag.Status,
		HubID:          tag.HubID,
		ActorID:        actor.ID,
		Timestamp:      now,
		Notes:          notes,
	}
}

func newEvent(eventType domain.EventType, actor domain.Actor, now time.Time) domain.Event {
	return domain.Event{
		ID:        newID(),
		Type:      eventType,
		ActorID:   actor.ID,
		Timestamp: now,
		TagIDs:    []string{},
	}
}

// record appends the movement entries and the event of one operation.
func record(tx domain.Tx, event domain.Event, movements []domain.MovementLogEntry) error {
	if err := tx.AppendMovements(movements...); err != nil {
		return fmt.Errorf("failed to append movement log: %w", err)
	}
	if err := tx.AppendEvent(event); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func putTag(tx domain.Tx, tag *domain.Tag) error {
	if err := tag.CheckInvariants(); err != nil {
		return fmt.Errorf("refusing to persist tag: %w", err)
	}
	if err := tx.PutTag(*tag); err != nil {
		return fmt.Errorf("failed to save tag: %w", err)
	}
	return nil
}
