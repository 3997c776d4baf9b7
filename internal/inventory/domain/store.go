package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Store is the transactional persistence boundary of the inventory core.
// Update runs fn atomically: either every write made through tx is committed
// or none is. View runs fn against a consistent read-only snapshot.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx ReadTx) error) error
}

// ReadTx exposes the read side of a transaction. Lookups of unknown ids
// return ErrRecordNotFound. Listings are ordered deterministically: tags by
// received time then id, transfers by initiation then id, logs by append order.
type ReadTx interface {
	GetTag(id string) (*Tag, error)
	ListTags(filter TagFilter) ([]Tag, error)
	CountTags(hubID string) (StockCounts, error)

	GetHub(id string) (*Hub, error)
	ListHubs() ([]Hub, error)
	// UsageSince sums applied counts for days >= fromDay.
	UsageSince(hubID, fromDay string) (int, error)

	GetTransfer(id string) (*Transfer, error)
	ListTransfers(filter TransferFilter) ([]Transfer, error)

	GetQuarantine(lotID string) (*QuarantinedLot, error)
	ListQuarantinedLots() ([]QuarantinedLot, error)

	ListMovements(filter MovementFilter) ([]MovementLogEntry, error)
	ListEvents(filter EventFilter) ([]Event, error)
	ListIncidents() ([]Incident, error)
}

// Tx is a read-write transaction. Reads inside Update lock the rows they
// return until the transaction ends.
type Tx interface {
	ReadTx

	PutTag(tag Tag) error
	PutHub(hub Hub) error
	AddUsage(hubID, day string, applied int) error
	PutTransfer(transfer Transfer) error
	PutQuarantine(lot QuarantinedLot) error
	DeleteQuarantine(lotID string) error

	AppendMovements(entries ...MovementLogEntry) error
	AppendEvent(event Event) error
	AppendIncident(incident Incident) error
}

// JobStatusChecker reports whether the downstream fulfillment job for a
// shipment has started processing.
type JobStatusChecker interface {
	HasStarted(ctx context.Context, shipmentID string) (bool, error)
}

// Clock returns the current time.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Actor identifies who performs an operation.
type Actor struct {
	ID string `json:"id"`
	// CanOverride is set for actors allowed to force blocked operations.
	CanOverride bool `json:"can_override"`
}

// SystemActor is used for operations not attributed to a person.
var SystemActor = Actor{ID: "system"}

// IsLotQuarantined is a helper over ReadTx.GetQuarantine.
func IsLotQuarantined(tx ReadTx, lotID string) (bool, error) {
	_, err := tx.GetQuarantine(lotID)
	if errors.Is(err, ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FindAlternativeHub picks the hub, other than the excluded ones, with the
// most assignable stock, provided it covers the required quantity. Ties go to
// the lowest hub id. It returns "" when no hub qualifies.
func FindAlternativeHub(tx ReadTx, required int, exclude ...string) (string, int, error) {
	hubs, err := tx.ListHubs()
	if err != nil {
		return "", 0, fmt.Errorf("failed to list hubs: %w", err)
	}

	best, bestAvailable := "", -1
	for _, hub := range hubs {
		if containsString(exclude, hub.ID) {
			continue
		}
		counts, err := tx.CountTags(hub.ID)
		if err != nil {
			return "", 0, fmt.Errorf("failed to count tags: %w", err)
		}
		available := counts.AssignableStock()
		if available >= required && available > bestAvailable {
			best, bestAvailable = hub.ID, available
		}
	}
	if best == "" {
		return "", 0, nil
	}
	return best, bestAvailable, nil
}
