package query

import (
	"errors"
	"fmt"
	"time"

	"github.com/tair/taghub/internal/inventory/alert"
	"github.com/tair/taghub/internal/inventory/domain"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func lookup[T any](get func(string) (*T, error), kind, id string) (*T, error) {
	if id == "" {
		return nil, domain.NewInvalidArgument("%s id is required", kind)
	}
	v, err := get(id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, domain.NewNotFound(kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", kind, err)
	}
	return v, nil
}

// hubSnapshot reads the alert engine inputs for one hub. Usage windows end
// on the day of now.
func hubSnapshot(tx domain.ReadTx, hub domain.Hub, now time.Time) (alert.HubSnapshot, error) {
	counts, err := tx.CountTags(hub.ID)
	if err != nil {
		return alert.HubSnapshot{}, fmt.Errorf("failed to count tags: %w", err)
	}

	windows := [3]int{1, 7, 30}
	var applied [3]int
	for i, days := range windows {
		applied[i], err = tx.UsageSince(hub.ID, domain.UsageWindowStart(now, days))
		if err != nil {
			return alert.HubSnapshot{}, fmt.Errorf("failed to read usage: %w", err)
		}
	}

	return alert.HubSnapshot{
		HubID:                hub.ID,
		Name:                 hub.Name,
		Threshold:            hub.Threshold,
		DaysOfCoverThreshold: hub.DaysOfCoverThreshold,
		FreeStock:            counts.FreeStock(),
		ReservedStock:        counts.ReservedStock(),
		QuarantinedStock:     counts.Quarantined,
		AppliedToday:         applied[0],
		AppliedLast7Days:     applied[1],
		AppliedLast30Days:    applied[2],
	}, nil
}

// hubSnapshots reads one hub, or every hub when hubID is empty.
func hubSnapshots(tx domain.ReadTx, hubID string, now time.Time) ([]alert.HubSnapshot, error) {
	var hubs []domain.Hub
	if hubID != "" {
		hub, err := lookup(tx.GetHub, "hub", hubID)
		if err != nil {
			return nil, err
		}
		hubs = []domain.Hub{*hub}
	} else {
		var err error
		hubs, err = tx.ListHubs()
		if err != nil {
			return nil, fmt.Errorf("failed to list hubs: %w", err)
		}
	}

	snapshots := make([]alert.HubSnapshot, 0, len(hubs))
	for _, hub := range hubs {
		snapshot, err := hubSnapshot(tx, hub, now)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}
