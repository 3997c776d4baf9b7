package domain

import "time"

// DefaultDaysOfCoverThreshold is used when a hub is created without one.
const DefaultDaysOfCoverThreshold = 14.0

// Hub represents a physical distribution site. Stock levels are not stored
// here; they are derived from tag state on every read.
type Hub struct {
	ID                   string    `json:"id" gorm:"primaryKey"`
	Name                 string    `json:"name" gorm:"not null"`
	Threshold            int       `json:"threshold" gorm:"not null;default:0"`
	DaysOfCoverThreshold float64   `json:"days_of_cover_threshold" gorm:"not null;default:14"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Hub) TableName() string {
	return "hubs"
}

// HubUsage is the number of tags applied at a hub on one UTC day.
type HubUsage struct {
	HubID   string `json:"hub_id" gorm:"primaryKey"`
	Day     string `json:"day" gorm:"primaryKey"`
	Applied int    `json:"applied" gorm:"not null;default:0"`
}

// TableName specifies the table name
func (HubUsage) TableName() string {
	return "hub_usages"
}

const dayLayout = "2006-01-02"

// UsageDay returns the usage bucket key for t.
func UsageDay(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// UsageWindowStart returns the first day of a trailing window of the given
// length that ends on (and includes) the day of now.
func UsageWindowStart(now time.Time, days int) string {
	if days < 1 {
		days = 1
	}
	return UsageDay(now.UTC().AddDate(0, 0, -(days - 1)))
}

// ParseUsageDay parses a usage bucket key.
func ParseUsageDay(day string) (time.Time, error) {
	return time.Parse(dayLayout, day)
}

// QuarantinedLot is a lot held back from assignment and transfer.
type QuarantinedLot struct {
	LotID         string    `json:"lot_id" gorm:"primaryKey"`
	Reason        string    `json:"reason"`
	ActorID       string    `json:"actor_id"`
	QuarantinedAt time.Time `json:"quarantined_at"`
}

// TableName specifies the table name
func (QuarantinedLot) TableName() string {
	return "quarantined_lots"
}

// QuarantineAction is how a quarantine is resolved.
type QuarantineAction string

const (
	QuarantineActionRelease QuarantineAction = "release"
	QuarantineActionRMA     QuarantineAction = "rma"
)

// IsValid reports whether a is a known action.
func (a QuarantineAction) IsValid() bool {
	return a == QuarantineActionRelease || a == QuarantineActionRMA
}
