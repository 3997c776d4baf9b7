package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tair/taghub/internal/inventory/domain"
)

var day0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func seedTags(t *testing.T, store *MemoryStore, tags ...domain.Tag) {
	t.Helper()
	err := store.Update(context.Background(), func(tx domain.Tx) error {
		for _, tag := range tags {
			if err := tx.PutTag(tag); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestMemoryStoreRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	seedTags(t, store, domain.Tag{ID: "TAG-1", LotID: "LOT-1", HubID: "HUB-PAR", Status: domain.TagStatusStock, ReceivedAt: day0})

	boom := errors.New("boom")
	err := store.Update(context.Background(), func(tx domain.Tx) error {
		tag, err := tx.GetTag("TAG-1")
		if err != nil {
			return err
		}
		tag.Status = domain.TagStatusRMA
		if err := tx.PutTag(*tag); err != nil {
			return err
		}
		if err := tx.AppendEvent(domain.Event{ID: "EV-1", Type: domain.EventTagRMA}); err != nil {
			return err
		}
		if err := tx.AddUsage("HUB-PAR", "2026-03-10", 3); err != nil {
			return err
		}

		// staged writes are visible inside the transaction
		staged, err := tx.GetTag("TAG-1")
		if err != nil || staged.Status != domain.TagStatusRMA {
			t.Errorf("expected staged status rma, got %+v (%v)", staged, err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = store.View(context.Background(), func(tx domain.ReadTx) error {
		tag, err := tx.GetTag("TAG-1")
		if err != nil {
			return err
		}
		if tag.Status != domain.TagStatusStock {
			t.Errorf("expected rollback to stock, got %s", tag.Status)
		}
		events, _ := tx.ListEvents(domain.EventFilter{})
		if len(events) != 0 {
			t.Errorf("expected no events after rollback, got %d", len(events))
		}
		usage, _ := tx.UsageSince("HUB-PAR", "2026-03-01")
		if usage != 0 {
			t.Errorf("expected no usage after rollback, got %d", usage)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	shipment := "SHP-1"
	seedTags(t, store, domain.Tag{ID: "TAG-1", HubID: "HUB-PAR", Status: domain.TagStatusReserved, ReservedForShipmentID: &shipment, ReceivedAt: day0})

	_ = store.View(context.Background(), func(tx domain.ReadTx) error {
		tag, _ := tx.GetTag("TAG-1")
		*tag.ReservedForShipmentID = "SHP-mutated"
		tag.Status = domain.TagStatusApplied
		return nil
	})

	_ = store.View(context.Background(), func(tx domain.ReadTx) error {
		tag, _ := tx.GetTag("TAG-1")
		if tag.Status != domain.TagStatusReserved || tag.ShipmentID() != "SHP-1" {
			t.Errorf("stored tag was mutated through a read: %+v", tag)
		}
		return nil
	})
}

func TestMemoryStoreViewRejectsWrites(t *testing.T) {
	store := NewMemoryStore()
	err := store.View(context.Background(), func(tx domain.ReadTx) error {
		return tx.(domain.Tx).PutHub(domain.Hub{ID: "HUB-X"})
	})
	if err == nil {
		t.Fatal("expected write in view to fail")
	}
}

func TestMemoryStoreCountTags(t *testing.T) {
	store := NewMemoryStore()
	shipment := "SHP-1"
	seedTags(t, store,
		domain.Tag{ID: "T1", LotID: "LOT-A", HubID: "HUB-PAR", Status: domain.TagStatusStock, ReceivedAt: day0},
		domain.Tag{ID: "T2", LotID: "LOT-B", HubID: "HUB-PAR", Status: domain.TagStatusStock, ReceivedAt: day0},
		domain.Tag{ID: "T3", LotID: "LOT-A", HubID: "HUB-PAR", Status: domain.TagStatusReserved, ReservedForShipmentID: &shipment, ReceivedAt: day0},
		domain.Tag{ID: "T4", LotID: "LOT-A", HubID: "HUB-PAR", Status: domain.TagStatusApplied, ReservedForShipmentID: &shipment, ReceivedAt: day0},
		domain.Tag{ID: "T5", LotID: "LOT-A", HubID: "HUB-PAR", Status: domain.TagStatusInTransit, ReceivedAt: day0},
		domain.Tag{ID: "T6", LotID: "LOT-A", HubID: "HUB-PAR", Status: domain.TagStatusRMA, ReceivedAt: day0},
		domain.Tag{ID: "T7", LotID: "LOT-A", HubID: "HUB-LON", Status: domain.TagStatusStock, ReceivedAt: day0},
	)
	err := store.Update(context.Background(), func(tx domain.Tx) error {
		return tx.PutQuarantine(domain.QuarantinedLot{LotID: "LOT-B"})
	})
	if err != nil {
		t.Fatalf("quarantine: %v", err)
	}

	_ = store.View(context.Background(), func(tx domain.ReadTx) error {
		counts, err := tx.CountTags("HUB-PAR")
		if err != nil {
			t.Fatalf("CountTags: %v", err)
		}
		if counts.FreeStock() != 2 || counts.ReservedStock() != 2 {
			t.Errorf("expected free 2 reserved 2, got %+v", counts)
		}
		if counts.Quarantined != 1 || counts.AssignableStock() != 1 {
			t.Errorf("expected 1 quarantined and 1 assignable, got %+v", counts)
		}
		if counts.InTransit != 1 {
			t.Errorf("expected 1 in transit, got %d", counts.InTransit)
		}
		return nil
	})
}

func TestMemoryStoreListOrderingAndLimits(t *testing.T) {
	store := NewMemoryStore()
	seedTags(t, store,
		domain.Tag{ID: "T-b", HubID: "HUB-PAR", Status: domain.TagStatusStock, ReceivedAt: day0},
		domain.Tag{ID: "T-a", HubID: "HUB-PAR", Status: domain.TagStatusStock, ReceivedAt: day0},
		domain.Tag{ID: "T-old", HubID: "HUB-PAR", Status: domain.TagStatusStock, ReceivedAt: day0.Add(-time.Hour)},
	)
	err := store.Update(context.Background(), func(tx domain.Tx) error {
		for _, id := range []string{"E1", "E2", "E3"} {
			if err := tx.AppendEvent(domain.Event{ID: id, Type: domain.EventTagReceived, HubID: "HUB-PAR"}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	_ = store.View(context.Background(), func(tx domain.ReadTx) error {
		tags, _ := tx.ListTags(domain.TagFilter{HubID: "HUB-PAR", Limit: 2})
		if len(tags) != 2 || tags[0].ID != "T-old" || tags[1].ID != "T-a" {
			t.Errorf("unexpected tag order: %+v", tags)
		}
		events, _ := tx.ListEvents(domain.EventFilter{Limit: 2})
		if len(events) != 2 || events[0].ID != "E2" || events[1].ID != "E3" {
			t.Errorf("expected latest two events in order, got %+v", events)
		}
		return nil
	})
}

func TestMemoryStoreQuarantineDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Update(ctx, func(tx domain.Tx) error {
		return tx.PutQuarantine(domain.QuarantinedLot{LotID: "LOT-A"})
	})
	_ = store.Update(ctx, func(tx domain.Tx) error {
		if err := tx.DeleteQuarantine("LOT-A"); err != nil {
			return err
		}
		if ok, _ := domain.IsLotQuarantined(tx, "LOT-A"); ok {
			t.Error("expected staged delete to be visible in the transaction")
		}
		return nil
	})
	_ = store.View(ctx, func(tx domain.ReadTx) error {
		if _, err := tx.GetQuarantine("LOT-A"); !errors.Is(err, domain.ErrRecordNotFound) {
			t.Errorf("expected record not found, got %v", err)
		}
		return nil
	})
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.Update(ctx, func(tx domain.Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Errorf("expected cancelled update to be skipped, got %v (called=%t)", err, called)
	}
}
