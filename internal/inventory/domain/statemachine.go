package domain

import (
	"fmt"
	"time"
)

// The tag lifecycle:
//
//	stock -> reserved -> applied
//	reserved -> stock            (unreserve)
//	stock | reserved -> rma
//	stock -> in_transit -> stock (transfer)
//	in_transit -> lost           (overdue transfer resolved as lost)
//
// Every method below validates the source state and mutates the tag in place.
// Callers persist the result inside the same store transaction they read it in.

// Assign reserves a stock tag for a shipment at the given hub.
func (t *Tag) Assign(shipmentID, hubID string, now time.Time) error {
	if t.Status != TagStatusStock {
		return invalidTransition(t, "assign")
	}
	if t.HubID != hubID {
		return hubMismatch(t, hubID, "assigning")
	}
	shipment := shipmentID
	t.Status = TagStatusReserved
	t.ReservedForShipmentID = &shipment
	t.UpdatedAt = now
	return nil
}

// Apply marks a reserved tag as physically applied.
func (t *Tag) Apply(hubID string, now time.Time) error {
	if t.Status != TagStatusReserved {
		return invalidTransition(t, "apply")
	}
	if t.HubID != hubID {
		return hubMismatch(t, hubID, "applying")
	}
	t.Status = TagStatusApplied
	t.UpdatedAt = now
	return nil
}

// Unreserve returns a reserved tag to stock.
func (t *Tag) Unreserve(now time.Time) error {
	if t.Status != TagStatusReserved {
		return invalidTransition(t, "unreserve")
	}
	t.Status = TagStatusStock
	t.ReservedForShipmentID = nil
	t.UpdatedAt = now
	return nil
}

// MarkRMA pulls a non-terminal tag out of circulation. An in-transit tag
// stays on its transfer and is skipped when the transfer resolves.
func (t *Tag) MarkRMA(now time.Time) error {
	if t.Status.IsTerminal() {
		return invalidTransition(t, "mark RMA on")
	}
	t.Status = TagStatusRMA
	t.ReservedForShipmentID = nil
	t.UpdatedAt = now
	return nil
}

// Dispatch puts a stock tag on a transfer leaving its hub.
func (t *Tag) Dispatch(now time.Time) error {
	if t.Status != TagStatusStock {
		return invalidTransition(t, "transfer")
	}
	t.Status = TagStatusInTransit
	t.UpdatedAt = now
	return nil
}

// Arrive lands an in-transit tag at the destination hub.
func (t *Tag) Arrive(toHubID string, now time.Time) error {
	if t.Status != TagStatusInTransit {
		return invalidTransition(t, "confirm arrival of")
	}
	t.Status = TagStatusStock
	t.HubID = toHubID
	t.UpdatedAt = now
	return nil
}

// MarkLost records an in-transit tag as lost.
func (t *Tag) MarkLost(now time.Time) error {
	if t.Status != TagStatusInTransit {
		return invalidTransition(t, "mark lost")
	}
	t.Status = TagStatusLost
	t.UpdatedAt = now
	return nil
}

func statusCause(t *Tag) string {
	switch t.Status {
	case TagStatusStock:
		return "is in free stock and not assigned to any shipment"
	case TagStatusReserved:
		return fmt.Sprintf("is already assigned to shipment %s", t.ShipmentID())
	case TagStatusApplied:
		return fmt.Sprintf("has already been applied to shipment %s", t.ShipmentID())
	case TagStatusRMA:
		return "is marked for RMA and out of circulation"
	case TagStatusInTransit:
		return "is in transit between hubs until arrival is confirmed"
	case TagStatusLost:
		return "was lost in transit"
	}
	return fmt.Sprintf("has unknown status %q", t.Status)
}

func invalidTransition(t *Tag, action string) *Error {
	return &Error{
		Code:          CodeInvalidStateTransition,
		Message:       fmt.Sprintf("cannot %s tag %s: tag %s (status %s)", action, t.ID, statusCause(t), t.Status),
		CurrentStatus: t.Status,
	}
}

func hubMismatch(t *Tag, hubID, verb string) *Error {
	return &Error{
		Code:          CodeHubMismatch,
		Message:       fmt.Sprintf("tag %s is located at hub %s, not %s", t.ID, t.HubID, hubID),
		Remedy:        fmt.Sprintf("create a transfer from %s to %s before %s it", t.HubID, hubID, verb),
		CurrentStatus: t.Status,
	}
}

// QuarantinedLotError rejects use of a tag whose lot is on hold.
func QuarantinedLotError(t *Tag, action string) *Error {
	return &Error{
		Code:          CodeInvalidStateTransition,
		Message:       fmt.Sprintf("cannot %s tag %s: lot %s is quarantined", action, t.ID, t.LotID),
		Remedy:        "pick a tag from another lot or resolve the quarantine first",
		CurrentStatus: t.Status,
	}
}
