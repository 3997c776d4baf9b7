package domain

import (
	"fmt"
	"time"
)

// TagStatus is the lifecycle state of a physical tag.
type TagStatus string

const (
	TagStatusStock     TagStatus = "stock"
	TagStatusReserved  TagStatus = "reserved"
	TagStatusApplied   TagStatus = "applied"
	TagStatusRMA       TagStatus = "rma"
	TagStatusInTransit TagStatus = "in_transit"
	TagStatusLost      TagStatus = "lost"
)

// IsValid reports whether s is a known status.
func (s TagStatus) IsValid() bool {
	switch s {
	case TagStatusStock, TagStatusReserved, TagStatusApplied,
		TagStatusRMA, TagStatusInTransit, TagStatusLost:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s TagStatus) IsTerminal() bool {
	return s == TagStatusApplied || s == TagStatusRMA || s == TagStatusLost
}

// HoldsReservation reports whether a tag in status s must reference a shipment.
func (s TagStatus) HoldsReservation() bool {
	return s == TagStatusReserved || s == TagStatusApplied
}

// Tag represents one physical authentication tag.
type Tag struct {
	ID                    string     `json:"id" gorm:"primaryKey"`
	LotID                 string     `json:"lot_id" gorm:"not null;index"`
	HubID                 string     `json:"hub_id" gorm:"not null;index"`
	Status                TagStatus  `json:"status" gorm:"not null;index"`
	ReservedForShipmentID *string    `json:"reserved_for_shipment_id,omitempty" gorm:"index"`
	ReceivedAt            time.Time  `json:"received_at" gorm:"not null;index"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
	Notes                 string     `json:"notes,omitempty"`
	UpdatedAt             time.Time  `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// TableName specifies the table name
func (Tag) TableName() string {
	return "tags"
}

// ShipmentID returns the reserved shipment id or "".
func (t *Tag) ShipmentID() string {
	if t.ReservedForShipmentID == nil {
		return ""
	}
	return *t.ReservedForShipmentID
}

// CheckInvariants verifies the reservation invariant of a tag.
func (t *Tag) CheckInvariants() error {
	if !t.Status.IsValid() {
		return fmt.Errorf("tag %s has unknown status %q", t.ID, t.Status)
	}
	hasShipment := t.ReservedForShipmentID != nil && *t.ReservedForShipmentID != ""
	if t.Status.HoldsReservation() != hasShipment {
		return fmt.Errorf("tag %s in status %s has reservation=%t", t.ID, t.Status, hasShipment)
	}
	return nil
}

// TagFilter narrows tag listings. Zero fields are ignored.
type TagFilter struct {
	HubID    string
	LotID    string
	Statuses []TagStatus
	IDs      []string
	Limit    int
}

// Matches reports whether the tag passes the filter (Limit is not applied).
func (f TagFilter) Matches(t Tag) bool {
	if f.HubID != "" && t.HubID != f.HubID {
		return false
	}
	if f.LotID != "" && t.LotID != f.LotID {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}
	if len(f.IDs) > 0 && !containsString(f.IDs, t.ID) {
		return false
	}
	return true
}

// StockCounts aggregates the tags located at one hub by status.
type StockCounts struct {
	Stock     int `json:"stock"`
	Reserved  int `json:"reserved"`
	Applied   int `json:"applied"`
	InTransit int `json:"in_transit"`
	// Quarantined counts stock tags whose lot is on hold.
	Quarantined int `json:"quarantined"`
}

// FreeStock is the count of tags sitting in stock at the hub.
func (c StockCounts) FreeStock() int {
	return c.Stock
}

// ReservedStock is the count of tags committed to shipments at the hub.
func (c StockCounts) ReservedStock() int {
	return c.Reserved + c.Applied
}

// AssignableStock excludes quarantined lots from free stock.
func (c StockCounts) AssignableStock() int {
	if c.Quarantined > c.Stock {
		return 0
	}
	return c.Stock - c.Quarantined
}

// Add counts one tag.
func (c *StockCounts) Add(status TagStatus, quarantined bool) {
	switch status {
	case TagStatusStock:
		c.Stock++
		if quarantined {
			c.Quarantined++
		}
	case TagStatusReserved:
		c.Reserved++
	case TagStatusApplied:
		c.Applied++
	case TagStatusInTransit:
		c.InTransit++
	}
}

func containsStatus(list []TagStatus, s TagStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
