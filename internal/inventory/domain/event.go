package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// EventType identifies the kind of inventory event.
type EventType string

// Event types emitted to external systems. The names are part of the
// integration contract with dashboards and audit consumers.
const (
	EventTagReceived          EventType = "inventory.tag.received"
	EventTagAssigned          EventType = "inventory.tag.assigned"
	EventTagApplied           EventType = "tag.applied"
	EventTagUnreserved        EventType = "inventory.tag.unreserved"
	EventTagRMA               EventType = "inventory.tag.rma"
	EventTagTransferred       EventType = "inventory.tag.transferred"
	EventTransferArrived      EventType = "inventory.tag.transfer.arrived"
	EventLotQuarantined       EventType = "inventory.lot.quarantined"
	EventLotQuarantineResolve EventType = "inventory.lot.quarantine_resolved"
	EventIncidentCreated      EventType = "incident.created"
	EventThresholdUpdated     EventType = "inventory.threshold.updated"
)

// Event is an immutable record of one logical inventory operation. Batch
// operations produce one event listing every affected tag.
type Event struct {
	ID         string         `json:"id" gorm:"primaryKey"`
	Type       EventType      `json:"type" gorm:"not null;index"`
	ActorID    string         `json:"actor_id"`
	Timestamp  time.Time      `json:"timestamp" gorm:"not null;index"`
	HubID      string         `json:"hub_id,omitempty" gorm:"index"`
	TransferID string         `json:"transfer_id,omitempty" gorm:"index"`
	LotID      string         `json:"lot_id,omitempty" gorm:"index"`
	TagIDs     pq.StringArray `json:"tag_ids" gorm:"type:text[]"`
	Payload    datatypes.JSON `json:"payload"`
}

// TableName specifies the table name
func (Event) TableName() string {
	return "inventory_events"
}

// DecodePayload unmarshals the event payload into v.
func (e *Event) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// NewPayload encodes an event payload. Values must be JSON encodable.
func NewPayload(fields map[string]any) datatypes.JSON {
	data, err := json.Marshal(fields)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// EventFilter narrows event journal queries. Zero fields are ignored.
type EventFilter struct {
	Type       EventType
	TagID      string
	HubID      string
	TransferID string
	LotID      string
	Since      time.Time
	Limit      int
}

// Matches reports whether the event passes the filter (Limit is not applied).
func (f EventFilter) Matches(e Event) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.TagID != "" && !containsString(e.TagIDs, f.TagID) {
		return false
	}
	if f.HubID != "" && e.HubID != f.HubID {
		return false
	}
	if f.TransferID != "" && e.TransferID != f.TransferID {
		return false
	}
	if f.LotID != "" && e.LotID != f.LotID {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// EventPublisher delivers committed events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event)
}

// MovementAction names the transition a movement log entry records.
type MovementAction string

const (
	MovementReceived    MovementAction = "received"
	MovementAssigned    MovementAction = "assigned"
	MovementApplied     MovementAction = "applied"
	MovementUnreserved  MovementAction = "unreserved"
	MovementRMA         MovementAction = "rma"
	MovementTransferred MovementAction = "transferred"
	MovementArrived     MovementAction = "arrived"
	MovementLost        MovementAction = "lost"
)

// MovementLogEntry is the immutable audit record of one tag transition.
type MovementLogEntry struct {
	ID             string         `json:"id" gorm:"primaryKey"`
	TagID          string         `json:"tag_id" gorm:"not null;index"`
	Action         MovementAction `json:"action" gorm:"not null"`
	PreviousStatus TagStatus      `json:"previous_status,omitempty"`
	NewStatus      TagStatus      `json:"new_status"`
	HubID          string         `json:"hub_id" gorm:"index"`
	ActorID        string         `json:"actor_id"`
	Timestamp      time.Time      `json:"timestamp" gorm:"not null;index"`
	Notes          string         `json:"notes,omitempty"`
}

// TableName specifies the table name
func (MovementLogEntry) TableName() string {
	return "movement_log"
}

// MovementFilter narrows movement log queries. Zero fields are ignored.
type MovementFilter struct {
	TagID string
	HubID string
	Limit int
}

// Matches reports whether the entry passes the filter.
func (f MovementFilter) Matches(m MovementLogEntry) bool {
	if f.TagID != "" && m.TagID != f.TagID {
		return false
	}
	if f.HubID != "" && m.HubID != f.HubID {
		return false
	}
	return true
}
