package domain

import (
	"sort"
	"time"

	"github.com/lib/pq"
)

// DefaultTransferETA applies when a transfer is initiated without an ETA.
const DefaultTransferETA = 24 * time.Hour

// TransferStatus is the lifecycle state of a transfer.
type TransferStatus string

const (
	TransferStatusInTransit TransferStatus = "in_transit"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusLost      TransferStatus = "lost"
)

// OverdueResolution is the operator decision on an overdue transfer.
type OverdueResolution string

const (
	ResolutionArrived OverdueResolution = "arrived"
	ResolutionLost    OverdueResolution = "lost"
)

// IsValid reports whether r is a known resolution.
func (r OverdueResolution) IsValid() bool {
	return r == ResolutionArrived || r == ResolutionLost
}

// Transfer is a batch movement of tags between two hubs.
type Transfer struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	FromHubID   string         `json:"from_hub_id" gorm:"not null;index"`
	ToHubID     string         `json:"to_hub_id" gorm:"not null;index"`
	TagIDs      pq.StringArray `json:"tag_ids" gorm:"type:text[]"`
	Quantity    int            `json:"quantity" gorm:"not null"`
	Reason      string         `json:"reason,omitempty"`
	Status      TransferStatus `json:"status" gorm:"not null;index"`
	ETA         time.Time      `json:"eta" gorm:"not null"`
	InitiatedAt time.Time      `json:"initiated_at" gorm:"not null"`
	InitiatedBy string         `json:"initiated_by,omitempty"`
	ArrivedAt   *time.Time     `json:"arrived_at,omitempty"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
}

// TableName specifies the table name
func (Transfer) TableName() string {
	return "transfers"
}

// Duration returns arrival minus initiation, or zero while in flight.
func (t *Transfer) Duration() time.Duration {
	if t.ArrivedAt == nil {
		return 0
	}
	return t.ArrivedAt.Sub(t.InitiatedAt)
}

// TransferFilter narrows transfer listings. Zero fields are ignored.
type TransferFilter struct {
	Status TransferStatus
	// HubID matches either end of the transfer.
	HubID string
}

// Matches reports whether the transfer passes the filter.
func (f TransferFilter) Matches(t Transfer) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.HubID != "" && t.FromHubID != f.HubID && t.ToHubID != f.HubID {
		return false
	}
	return true
}

// OverdueTransfer is an in-transit transfer whose ETA has passed.
type OverdueTransfer struct {
	Transfer    Transfer `json:"transfer"`
	DaysPastDue int      `json:"days_past_due"`
}

// CheckOverdue returns the in-transit transfers that are past their ETA at now,
// ordered by ETA (oldest first). It is recomputed on every call.
func CheckOverdue(transfers []Transfer, now time.Time) []OverdueTransfer {
	var overdue []OverdueTransfer
	for _, t := range transfers {
		if t.Status != TransferStatusInTransit || !now.After(t.ETA) {
			continue
		}
		overdue = append(overdue, OverdueTransfer{
			Transfer:    t,
			DaysPastDue: int(now.Sub(t.ETA) / (24 * time.Hour)),
		})
	}
	sort.SliceStable(overdue, func(i, j int) bool {
		if overdue[i].Transfer.ETA.Equal(overdue[j].Transfer.ETA) {
			return overdue[i].Transfer.ID < overdue[j].Transfer.ID
		}
		return overdue[i].Transfer.ETA.Before(overdue[j].Transfer.ETA)
	})
	return overdue
}

// IncidentSeverity classifies incidents raised by the orchestrator.
type IncidentSeverity string

const IncidentSeverityHigh IncidentSeverity = "high"

// Incident records an operational failure that needs follow-up, such as a
// transfer resolved as lost.
type Incident struct {
	ID          string           `json:"id" gorm:"primaryKey"`
	Severity    IncidentSeverity `json:"severity" gorm:"not null"`
	TransferID  string           `json:"transfer_id" gorm:"index"`
	DaysOverdue int              `json:"days_overdue"`
	Message     string           `json:"message"`
	ActorID     string           `json:"actor_id"`
	CreatedAt   time.Time        `json:"created_at"`
}

// TableName specifies the table name
func (Incident) TableName() string {
	return "incidents"
}
