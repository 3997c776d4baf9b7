package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tair/taghub/internal/inventory/domain"
	"github.com/tair/taghub/internal/inventory/events"
	"github.com/tair/taghub/internal/inventory/jobstatus"
	"github.com/tair/taghub/internal/inventory/repository"
)

// recordingSink keeps every published event in memory.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingSink) Name() string { return "recorder" }

func (r *recordingSink) Handle(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

func (r *recordingSink) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

var (
	operator   = domain.Actor{ID: "op-1"}
	supervisor = domain.Actor{ID: "sup-1", CanOverride: true}
)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *repository.MemoryStore
	recorder *recordingSink
	bus      *events.Dispatcher
	jobs     *jobstatus.StaticChecker
	now      time.Time
	settings Settings
}

func newFixture(t *testing.T) *fixture {
	recorder := &recordingSink{}
	return &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    repository.NewMemoryStore(),
		recorder: recorder,
		bus:      events.NewDispatcher(recorder),
		jobs:     jobstatus.NewStaticChecker(),
		now:      time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		settings: DefaultSettings(),
	}
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) hub(id string, threshold int) {
	f.t.Helper()
	_, err := NewCreateHubHandler(f.store, f.clock, f.settings).Handle(f.ctx, CreateHubCommand{ID: id, Name: id, Threshold: threshold})
	if err != nil {
		f.t.Fatalf("create hub %s: %v", id, err)
	}
}

func (f *fixture) receive(hubID, lotID string, ids ...string) {
	f.t.Helper()
	_, err := NewReceiveTagsHandler(f.store, f.bus, f.clock, f.settings).Handle(f.ctx, ReceiveTagsCommand{
		HubID:  hubID,
		LotID:  lotID,
		TagIDs: ids,
		Actor:  operator,
	})
	if err != nil {
		f.t.Fatalf("receive: %v", err)
	}
}

func (f *fixture) receiveN(hubID, lotID, prefix string, n int) []string {
	f.t.Helper()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%03d", prefix, i)
	}
	f.receive(hubID, lotID, ids...)
	return ids
}

func (f *fixture) tag(id string) domain.Tag {
	f.t.Helper()
	var tag domain.Tag
	err := f.store.View(f.ctx, func(tx domain.ReadTx) error {
		got, err := tx.GetTag(id)
		if err != nil {
			return err
		}
		tag = *got
		return nil
	})
	if err != nil {
		f.t.Fatalf("get tag %s: %v", id, err)
	}
	return tag
}

func (f *fixture) counts(hubID string) domain.StockCounts {
	f.t.Helper()
	var counts domain.StockCounts
	err := f.store.View(f.ctx, func(tx domain.ReadTx) error {
		var err error
		counts, err = tx.CountTags(hubID)
		return err
	})
	if err != nil {
		f.t.Fatalf("count tags: %v", err)
	}
	return counts
}

func (f *fixture) assign(tagID, shipmentID, hubID string) (*domain.Tag, error) {
	return NewAssignTagHandler(f.store, f.bus, f.clock).Handle(f.ctx, AssignTagCommand{
		TagID: tagID, ShipmentID: shipmentID, HubID: hubID, Actor: operator,
	})
}

func (f *fixture) transfer(from, to string, quantity int) (*domain.Transfer, error) {
	return NewInitiateTransferHandler(f.store, f.bus, f.clock, f.settings).Handle(f.ctx, InitiateTransferCommand{
		FromHubID: from, ToHubID: to, Quantity: quantity, Reason: "rebalance", Actor: operator,
	})
}

// expectOneEvent checks that the last operation published exactly one event of the given type.
func (f *fixture) expectOneEvent(eventType domain.EventType) domain.Event {
	f.t.Helper()
	published := f.recorder.Events()
	if len(published) != 1 {
		f.t.Fatalf("expected exactly 1 event, got %d: %+v", len(published), published)
	}
	if published[0].Type != eventType {
		f.t.Fatalf("expected event %s, got %s", eventType, published[0].Type)
	}
	f.recorder.Reset()
	return published[0]
}

func TestAssignApplyLifecycle(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-PAR", 10)
	f.receive("HUB-PAR", "LOT-1", "TAG-001", "TAG-002")
	received := f.expectOneEvent(domain.EventTagReceived)
	if len(received.TagIDs) != 2 {
		t.Errorf("expected receipt event to list 2 tags, got %v", received.TagIDs)
	}

	tag, err := f.assign("TAG-001", "SHP-1", "HUB-PAR")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if tag.Status != domain.TagStatusReserved || tag.ShipmentID() != "SHP-1" {
		t.Errorf("unexpected tag after assign: %+v", tag)
	}
	assigned := f.expectOneEvent(domain.EventTagAssigned)
	var payload struct {
		ShipmentID string  `json:"shipment_id"`
		LatencyMS  float64 `json:"latency_ms"`
	}
	if err := assigned.DecodePayload(&payload); err != nil || payload.ShipmentID != "SHP-1" {
		t.Errorf("unexpected assign payload %+v (%v)", payload, err)
	}

	if _, err := NewApplyTagHandler(f.store, f.bus, f.clock).Handle(f.ctx, ApplyTagCommand{TagID: "TAG-001", HubID: "HUB-PAR", Actor: operator}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	f.expectOneEvent(domain.EventTagApplied)

	counts := f.counts("HUB-PAR")
	if counts.FreeStock() != 1 || counts.ReservedStock() != 1 {
		t.Errorf("expected free 1 reserved 1, got %+v", counts)
	}

	_ = f.store.View(f.ctx, func(tx domain.ReadTx) error {
		usage, _ := tx.UsageSince("HUB-PAR", domain.UsageDay(f.now))
		if usage != 1 {
			t.Errorf("expected 1 applied today, got %d", usage)
		}
		moves, _ := tx.ListMovements(domain.MovementFilter{TagID: "TAG-001"})
		if len(moves) != 3 {
			t.Errorf("expected 3 movements for TAG-001, got %d", len(moves))
		}
		journal, _ := tx.ListEvents(domain.EventFilter{TagID: "TAG-001"})
		if len(journal) != 3 {
			t.Errorf("expected 3 journal events for TAG-001, got %d", len(journal))
		}
		return nil
	})
}

func TestAssignAlreadyAssigned(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-PAR", 0)
	f.receive("HUB-PAR", "LOT-1", "TAG-001")
	if _, err := f.assign("TAG-001", "SHP-1", "HUB-PAR"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	f.recorder.Reset()

	_, err := f.assign("TAG-001", "SHP-2", "HUB-PAR")
	if !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Fatalf("expected invalid state transition, got %v", err)
	}
	if !strings.Contains(err.Error(), "already assigned") {
		t.Errorf("expected message to say already assigned, got %q", err.Error())
	}
	tag := f.tag("TAG-001")
	if got := tag.ShipmentID(); got != "SHP-1" {
		t.Errorf("reservation was overwritten: %s", got)
	}
	if len(f.recorder.Events()) != 0 {
		t.Error("failed assign must not publish events")
	}
}

func TestAssignHubMismatchProposesTransfer(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-PAR", 0)
	f.hub("HUB-LON", 0)
	f.receive("HUB-LON", "LOT-1", "TAG-011")
	f.recorder.Reset()

	_, err := f.assign("TAG-011", "SHP-X", "HUB-PAR")
	if !errors.Is(err, domain.ErrHubMismatch) {
		t.Fatalf("expected hub mismatch, got %v", err)
	}
	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatal("expected structured error")
	}
	if !strings.Contains(domainErr.Remedy, "transfer from HUB-LON to HUB-PAR") {
		t.Errorf("expected transfer remedy, got %q", domainErr.Remedy)
	}
	if f.tag("TAG-011").Status != domain.TagStatusStock {
		t.Error("tag must stay in stock")
	}
}

func TestAssignUnknownTag(t *testing.T) {
	f := newFixture(t)
	_, err := f.assign("TAG-404", "SHP-1", "HUB-PAR")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConcurrentAssignHasSingleWinner(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-PAR", 0)
	f.receive("HUB-PAR", "LOT-1", "TAG-001")

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.assign("TAG-001", fmt.Sprintf("SHP-%d", i), "HUB-PAR")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrInvalidStateTransition):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 || conflicts != attempts-1 {
		t.Errorf("expected 1 winner and %d conflicts, got %d and %d", attempts-1, wins, conflicts)
	}
	if err := func() error { tag := f.tag("TAG-001"); return tag.CheckInvariants() }(); err != nil {
		t.Errorf("invariants: %v", err)
	}
}

func TestAssignRejectsQuarantinedLot(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-PAR", 0)
	f.receive("HUB-PAR", "LOT-BAD", "TAG-001")
	if _, err := NewQuarantineLotHandler(f.store, f.bus, f.clock).Handle(f.ctx, QuarantineLotCommand{LotID: "LOT-BAD", Reason: "adhesive defect", Actor: operator}); err != nil {
		t.Fatalf("quarantine: %v", err)
	}

	_, err := f.assign("TAG-001", "SHP-1", "HUB-PAR")
	if !errors.Is(err, domain.ErrInvalidStateTransition) || !strings.Contains(err.Error(), "quarantined") {
		t.Fatalf("expected quarantine rejection, got %v", err)
	}
	if f.tag("TAG-001").Status != domain.TagStatusStock {
		t.Error("tag must stay in stock")
	}
}

func TestInitiateTransferInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-LON", 0)
	f.hub("HUB-PAR", 0)
	f.hub("HUB-BER", 0)
	lon := f.receiveN("HUB-LON", "LOT-1", "LON", 60)
	f.receiveN("HUB-BER", "LOT-2", "BER", 150)
	f.recorder.Reset()

	_, err := f.transfer("HUB-LON", "HUB-PAR", 100)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	var domainErr *domain.Error
	errors.As(err, &domainErr)
	if domainErr.Available != 60 || domainErr.Requested != 100 || domainErr.Shortfall() != 40 {
		t.Errorf("unexpected error fields: %+v", domainErr)
	}
	if domainErr.AlternativeHubID != "HUB-BER" {
		t.Errorf("expected alternative hub HUB-BER, got %q", domainErr.AlternativeHubID)
	}
	if !strings.Contains(err.Error(), "60 eligible tags available, 100 requested") {
		t.Errorf("unexpected message %q", err.Error())
	}

	for _, id := range lon {
		if tag := f.tag(id); tag.Status != domain.TagStatusStock || tag.HubID != "HUB-LON" {
			t.Fatalf("tag %s mutated by failed transfer: %+v", id, tag)
		}
	}
	if len(f.recorder.Events()) != 0 {
		t.Error("failed transfer must not publish events")
	}
}

func TestTransferRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-LON", 0)
	f.hub("HUB-PAR", 0)
	f.receiveN("HUB-LON", "LOT-1", "LON", 8)
	f.recorder.Reset()

	transfer, err := f.transfer("HUB-LON", "HUB-PAR", 5)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	dispatched := f.expectOneEvent(domain.EventTagTransferred)
	if len(dispatched.TagIDs) != 5 {
		t.Errorf("expected 5 tags on the transfer event, got %d", len(dispatched.TagIDs))
	}
	if !transfer.ETA.Equal(f.now.Add(24 * time.Hour)) {
		t.Errorf("expected default ETA of 24h, got %s", transfer.ETA)
	}
	if c := f.counts("HUB-LON"); c.FreeStock() != 3 || c.InTransit != 5 {
		t.Errorf("unexpected origin counts while in transit: %+v", c)
	}
	if c := f.counts("HUB-PAR"); c.FreeStock() != 0 {
		t.Errorf("in-transit tags must not count at destination: %+v", c)
	}

	f.now = f.now.Add(6 * time.Hour)
	arrived, err := NewConfirmArrivalHandler(f.store, f.bus, f.clock).Handle(f.ctx, ConfirmArrivalCommand{TransferID: transfer.ID, Actor: operator})
	if err != nil {
		t.Fatalf("confirm arrival: %v", err)
	}
	if arrived.Status != domain.TransferStatusCompleted || arrived.Duration() != 6*time.Hour {
		t.Errorf("unexpected transfer after arrival: %+v", arrived)
	}
	event := f.expectOneEvent(domain.EventTransferArrived)
	var payload struct {
		DurationSeconds float64 `json:"duration_seconds"`
	}
	_ = event.DecodePayload(&payload)
	if payload.DurationSeconds != 6*3600 {
		t.Errorf("expected duration 21600s, got %v", payload.DurationSeconds)
	}

	for _, id := range transfer.TagIDs {
		if tag := f.tag(id); tag.Status != domain.TagStatusStock || tag.HubID != "HUB-PAR" {
			t.Errorf("tag %s not in stock at destination: %+v", id, tag)
		}
	}
	if c := f.counts("HUB-LON"); c.FreeStock() != 3 || c.InTransit != 0 {
		t.Errorf("unexpected origin counts: %+v", c)
	}
	if c := f.counts("HUB-PAR"); c.FreeStock() != 5 {
		t.Errorf("expected 5 in stock at destination, got %+v", c)
	}

	_, err = NewConfirmArrivalHandler(f.store, f.bus, f.clock).Handle(f.ctx, ConfirmArrivalCommand{TransferID: transfer.ID, Actor: operator})
	if !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("expected second arrival to fail, got %v", err)
	}
}

func TestTransferSkipsQuarantinedLots(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-LON", 0)
	f.hub("HUB-PAR", 0)
	f.receiveN("HUB-LON", "LOT-BAD", "BAD", 3)
	good := f.receiveN("HUB-LON", "LOT-OK", "OK", 2)
	if _, err := NewQuarantineLotHandler(f.store, f.bus, f.clock).Handle(f.ctx, QuarantineLotCommand{LotID: "LOT-BAD", Reason: "recall", Actor: operator}); err != nil {
		t.Fatalf("quarantine: %v", err)
	}

	if _, err := f.transfer("HUB-LON", "HUB-PAR", 3); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	transfer, err := f.transfer("HUB-LON", "HUB-PAR", 2)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if len(transfer.TagIDs) != 2 || transfer.TagIDs[0] != good[0] || transfer.TagIDs[1] != good[1] {
		t.Errorf("expected only unquarantined tags, got %v", transfer.TagIDs)
	}
}

func TestUnreserveOverride(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-PAR", 0)
	f.receive("HUB-PAR", "LOT-1", "TAG-001", "TAG-002")
	for _, id := range []string{"TAG-001", "TAG-002"} {
		if _, err := f.assign(id, "SHP-"+id, "HUB-PAR"); err != nil {
			t.Fatalf("assign: %v", err)
		}
	}
	_ = f.jobs.SetStatus(f.ctx, "SHP-TAG-001", jobstatus.StatusStarted)
	f.recorder.Reset()

	handler := NewUnreserveTagHandler(f.store, f.bus, f.jobs, f.clock)

	tests := []struct {
		name    string
		tagID   string
		actor   domain.Actor
		force   bool
		wantErr error
	}{
		{"started job without override", "TAG-001", operator, false, domain.ErrOverrideRequired},
		{"override by unauthorized actor", "TAG-001", operator, true, domain.ErrOverrideRequired},
		{"override by supervisor", "TAG-001", supervisor, true, nil},
		{"job not started", "TAG-002", operator, false, nil},
		{"already in stock", "TAG-002", operator, false, domain.ErrInvalidStateTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.recorder.Reset()
			tag, err := handler.Handle(f.ctx, UnreserveTagCommand{TagID: tt.tagID, Reason: "order cancelled", IsOverride: tt.force, Actor: tt.actor})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unreserve: %v", err)
			}
			if tag.Status != domain.TagStatusStock || tag.ReservedForShipmentID != nil {
				t.Errorf("unexpected tag after unreserve: %+v", tag)
			}
			event := f.expectOneEvent(domain.EventTagUnreserved)
			var payload struct {
				WasJobStarted bool `json:"was_job_started"`
				IsOverride    bool `json:"is_override"`
			}
			_ = event.DecodePayload(&payload)
			if payload.IsOverride != tt.force || payload.WasJobStarted != (tt.tagID == "TAG-001") {
				t.Errorf("unexpected audit flags: %+v", payload)
			}
		})
	}
}

func TestMarkRMAClearsReservation(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-PAR", 0)
	f.receive("HUB-PAR", "LOT-1", "TAG-001")
	if _, err := f.assign("TAG-001", "SHP-1", "HUB-PAR"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	f.recorder.Reset()

	handler := NewMarkRMAHandler(f.store, f.bus, f.clock)
	tag, err := handler.Handle(f.ctx, MarkRMACommand{TagID: "TAG-001", Reason: "damaged", Actor: operator})
	if err != nil {
		t.Fatalf("rma: %v", err)
	}
	if tag.Status != domain.TagStatusRMA || tag.ReservedForShipmentID != nil {
		t.Errorf("unexpected tag after rma: %+v", tag)
	}
	f.expectOneEvent(domain.EventTagRMA)

	if _, err := handler.Handle(f.ctx, MarkRMACommand{TagID: "TAG-001", Reason: "again", Actor: operator}); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("expected rma on rma tag to fail, got %v", err)
	}
}

func TestResolveOverdue(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-LON", 0)
	f.hub("HUB-PAR", 0)
	f.receiveN("HUB-LON", "LOT-1", "LON", 4)
	lost, err := f.transfer("HUB-LON", "HUB-PAR", 2)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	late, err := f.transfer("HUB-LON", "HUB-PAR", 2)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	f.recorder.Reset()

	handler := NewResolveOverdueHandler(f.store, f.bus, f.clock, NewConfirmArrivalHandler(f.store, f.bus, f.clock))

	_, err = handler.Handle(f.ctx, ResolveOverdueCommand{TransferID: lost.ID, Resolution: domain.ResolutionLost, Actor: operator})
	if !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Fatalf("expected transfer within ETA to reject lost, got %v", err)
	}

	f.now = f.now.Add(24*time.Hour + 4*24*time.Hour + time.Hour)
	result, err := handler.Handle(f.ctx, ResolveOverdueCommand{TransferID: lost.ID, Resolution: domain.ResolutionLost, Actor: operator})
	if err != nil {
		t.Fatalf("resolve lost: %v", err)
	}
	if result.Transfer.Status != domain.TransferStatusLost || result.Incident == nil {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Incident.Severity != domain.IncidentSeverityHigh || result.Incident.DaysOverdue != 4 {
		t.Errorf("unexpected incident: %+v", result.Incident)
	}
	f.expectOneEvent(domain.EventIncidentCreated)
	for _, id := range lost.TagIDs {
		if tag := f.tag(id); tag.Status != domain.TagStatusLost {
			t.Errorf("expected tag %s lost, got %s", id, tag.Status)
		}
	}

	result, err = handler.Handle(f.ctx, ResolveOverdueCommand{TransferID: late.ID, Resolution: domain.ResolutionArrived, Actor: operator})
	if err != nil {
		t.Fatalf("resolve arrived: %v", err)
	}
	if result.Transfer.Status != domain.TransferStatusCompleted || result.Incident != nil {
		t.Errorf("unexpected arrived result: %+v", result)
	}
	f.expectOneEvent(domain.EventTransferArrived)

	var overdue []domain.OverdueTransfer
	_ = f.store.View(f.ctx, func(tx domain.ReadTx) error {
		transfers, err := tx.ListTransfers(domain.TransferFilter{})
		overdue = domain.CheckOverdue(transfers, f.now)
		return err
	})
	if len(overdue) != 0 {
		t.Errorf("expected no overdue transfers after resolution, got %d", len(overdue))
	}

	_, err = handler.Handle(f.ctx, ResolveOverdueCommand{TransferID: late.ID, Resolution: "found"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected invalid resolution to fail, got %v", err)
	}
}

func TestReleaseQuarantineAsRMA(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-LON", 0)
	f.hub("HUB-PAR", 0)
	f.receive("HUB-LON", "LOT-1", "T-stock", "T-reserved", "T-moving", "T-applied")
	if _, err := f.assign("T-reserved", "SHP-1", "HUB-LON"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.assign("T-applied", "SHP-2", "HUB-LON"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := NewApplyTagHandler(f.store, f.bus, f.clock).Handle(f.ctx, ApplyTagCommand{TagID: "T-applied", HubID: "HUB-LON"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := NewInitiateTransferHandler(f.store, f.bus, f.clock, f.settings).Handle(f.ctx, InitiateTransferCommand{
		FromHubID: "HUB-LON", ToHubID: "HUB-PAR", TagIDs: []string{"T-moving"},
	}); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	quarantine := NewQuarantineLotHandler(f.store, f.bus, f.clock)
	if _, err := quarantine.Handle(f.ctx, QuarantineLotCommand{LotID: "LOT-1", Reason: "counterfeit risk", Actor: operator}); err != nil {
		t.Fatalf("quarantine: %v", err)
	}
	if _, err := quarantine.Handle(f.ctx, QuarantineLotCommand{LotID: "LOT-1", Reason: "twice", Actor: operator}); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("expected double quarantine to fail, got %v", err)
	}
	f.recorder.Reset()

	release := NewReleaseQuarantineHandler(f.store, f.bus, f.clock)
	result, err := release.Handle(f.ctx, ReleaseQuarantineCommand{LotID: "LOT-1", Action: domain.QuarantineActionRMA, Reason: "confirmed", Actor: operator})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	f.expectOneEvent(domain.EventLotQuarantineResolve)

	if len(result.TagIDs) != 3 {
		t.Errorf("unexpected resolution: %+v", result)
	}
	want := map[string]domain.TagStatus{
		"T-stock":    domain.TagStatusRMA,
		"T-reserved": domain.TagStatusRMA,
		"T-moving":   domain.TagStatusRMA,
		"T-applied":  domain.TagStatusApplied,
	}
	for id, status := range want {
		if got := f.tag(id).Status; got != status {
			t.Errorf("tag %s: expected %s, got %s", id, status, got)
		}
	}

	if _, err := release.Handle(f.ctx, ReleaseQuarantineCommand{LotID: "LOT-1", Action: domain.QuarantineActionRelease}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected releasing an unquarantined lot to fail, got %v", err)
	}
}

func TestQuarantineUnknownLot(t *testing.T) {
	f := newFixture(t)
	_, err := NewQuarantineLotHandler(f.store, f.bus, f.clock).Handle(f.ctx, QuarantineLotCommand{LotID: "LOT-X", Reason: "r"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestHubCountsMatchTagState(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-PAR", 0)
	f.hub("HUB-LON", 0)
	ids := f.receiveN("HUB-PAR", "LOT-1", "PAR", 10)
	_, _ = f.assign(ids[0], "SHP-1", "HUB-PAR")
	_, _ = f.assign(ids[1], "SHP-2", "HUB-PAR")
	_, _ = NewApplyTagHandler(f.store, f.bus, f.clock).Handle(f.ctx, ApplyTagCommand{TagID: ids[1], HubID: "HUB-PAR"})
	_, _ = NewMarkRMAHandler(f.store, f.bus, f.clock).Handle(f.ctx, MarkRMACommand{TagID: ids[2], Reason: "torn"})
	_, _ = f.transfer("HUB-PAR", "HUB-LON", 3)

	var tags []domain.Tag
	_ = f.store.View(f.ctx, func(tx domain.ReadTx) error {
		var err error
		tags, err = tx.ListTags(domain.TagFilter{HubID: "HUB-PAR"})
		return err
	})
	held := 0
	for _, tag := range tags {
		switch tag.Status {
		case domain.TagStatusStock, domain.TagStatusReserved, domain.TagStatusApplied:
			held++
		}
		if err := tag.CheckInvariants(); err != nil {
			t.Errorf("invariants: %v", err)
		}
	}

	counts := f.counts("HUB-PAR")
	if counts.FreeStock()+counts.ReservedStock() != held {
		t.Errorf("free %d + reserved %d != %d held tags", counts.FreeStock(), counts.ReservedStock(), held)
	}
	if counts.FreeStock() != 4 || counts.ReservedStock() != 2 {
		t.Errorf("expected free 4 reserved 2, got %+v", counts)
	}
}

func TestReceiveValidation(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-PAR", 0)
	f.receive("HUB-PAR", "LOT-1", "TAG-001")
	handler := NewReceiveTagsHandler(f.store, f.bus, f.clock, f.settings)

	tests := []struct {
		name    string
		cmd     ReceiveTagsCommand
		wantErr error
	}{
		{"unknown hub", ReceiveTagsCommand{HubID: "HUB-X", LotID: "L", Quantity: 1}, domain.ErrNotFound},
		{"missing lot", ReceiveTagsCommand{HubID: "HUB-PAR", Quantity: 1}, domain.ErrInvalidArgument},
		{"zero quantity", ReceiveTagsCommand{HubID: "HUB-PAR", LotID: "L"}, domain.ErrInvalidArgument},
		{"duplicate ids", ReceiveTagsCommand{HubID: "HUB-PAR", LotID: "L", TagIDs: []string{"A", "A"}}, domain.ErrInvalidArgument},
		{"existing id", ReceiveTagsCommand{HubID: "HUB-PAR", LotID: "L", TagIDs: []string{"TAG-001"}}, domain.ErrInvalidArgument},
		{"quantity mismatch", ReceiveTagsCommand{HubID: "HUB-PAR", LotID: "L", Quantity: 3, TagIDs: []string{"B"}}, domain.ErrInvalidArgument},
		{"generated ids", ReceiveTagsCommand{HubID: "HUB-PAR", LotID: "L", Quantity: 5}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags, err := handler.Handle(f.ctx, tt.cmd)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("receive: %v", err)
			}
			if len(tags) != tt.cmd.Quantity {
				t.Errorf("expected %d tags, got %d", tt.cmd.Quantity, len(tags))
			}
		})
	}
}

func TestUpdateThresholdEmitsEvent(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-PAR", 500)

	threshold := 800
	hub, err := NewUpdateThresholdHandler(f.store, f.bus, f.clock).Handle(f.ctx, UpdateThresholdCommand{HubID: "HUB-PAR", Threshold: &threshold, Actor: operator})
	if err != nil {
		t.Fatalf("update threshold: %v", err)
	}
	if hub.Threshold != 800 || hub.DaysOfCoverThreshold != domain.DefaultDaysOfCoverThreshold {
		t.Errorf("unexpected hub: %+v", hub)
	}
	event := f.expectOneEvent(domain.EventThresholdUpdated)
	var payload struct {
		Previous int `json:"previous_threshold"`
		Current  int `json:"threshold"`
	}
	_ = event.DecodePayload(&payload)
	if payload.Previous != 500 || payload.Current != 800 {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestRecordUsage(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-PAR", 0)
	handler := NewRecordUsageHandler(f.store, f.clock)

	if _, err := handler.Handle(f.ctx, RecordUsageCommand{HubID: "HUB-PAR", Day: "2026-03-08", Applied: 40}); err != nil {
		t.Fatalf("record usage: %v", err)
	}
	usage, err := handler.Handle(f.ctx, RecordUsageCommand{HubID: "HUB-PAR", Day: "2026-03-08", Applied: 5})
	if err != nil {
		t.Fatalf("record usage: %v", err)
	}
	if usage.Applied != 45 {
		t.Errorf("expected 45 applied on the day, got %d", usage.Applied)
	}

	if _, err := handler.Handle(f.ctx, RecordUsageCommand{HubID: "HUB-PAR", Day: "2026-03-11", Applied: 1}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected future day to fail, got %v", err)
	}
	if _, err := handler.Handle(f.ctx, RecordUsageCommand{HubID: "HUB-PAR", Day: "03/08/2026", Applied: 1}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected malformed day to fail, got %v", err)
	}
}

func TestRMALotStaysOutOfCirculationAfterArrival(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-LON", 0)
	f.hub("HUB-PAR", 0)
	f.receive("HUB-LON", "LOT-1", "T-moving")
	f.receive("HUB-LON", "LOT-2", "T-other")
	transfer, err := NewInitiateTransferHandler(f.store, f.bus, f.clock, f.settings).Handle(f.ctx, InitiateTransferCommand{
		FromHubID: "HUB-LON", ToHubID: "HUB-PAR", TagIDs: []string{"T-moving", "T-other"}, Actor: operator,
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, err := NewQuarantineLotHandler(f.store, f.bus, f.clock).Handle(f.ctx, QuarantineLotCommand{LotID: "LOT-1", Reason: "recall", Actor: operator}); err != nil {
		t.Fatalf("quarantine: %v", err)
	}
	result, err := NewReleaseQuarantineHandler(f.store, f.bus, f.clock).Handle(f.ctx, ReleaseQuarantineCommand{
		LotID: "LOT-1", Action: domain.QuarantineActionRMA, Reason: "confirmed", Actor: operator,
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(result.TagIDs) != 1 || result.TagIDs[0] != "T-moving" {
		t.Fatalf("expected the in-transit tag to be converted, got %+v", result)
	}
	f.recorder.Reset()

	if _, err := NewConfirmArrivalHandler(f.store, f.bus, f.clock).Handle(f.ctx, ConfirmArrivalCommand{TransferID: transfer.ID, Actor: operator}); err != nil {
		t.Fatalf("confirm arrival: %v", err)
	}
	event := f.expectOneEvent(domain.EventTransferArrived)
	if len(event.TagIDs) != 1 || event.TagIDs[0] != "T-other" {
		t.Errorf("expected only T-other to arrive, got %v", event.TagIDs)
	}

	if tag := f.tag("T-moving"); tag.Status != domain.TagStatusRMA {
		t.Errorf("expected T-moving to stay rma, got %s", tag.Status)
	}
	if tag := f.tag("T-other"); tag.Status != domain.TagStatusStock || tag.HubID != "HUB-PAR" {
		t.Errorf("unexpected T-other after arrival: %+v", tag)
	}
	if _, err := f.assign("T-moving", "SHP-9", "HUB-PAR"); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("expected assign of rma tag to fail, got %v", err)
	}
}

func TestMarkRMAInTransitThenLost(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-LON", 0)
	f.hub("HUB-PAR", 0)
	f.receiveN("HUB-LON", "LOT-1", "LON", 2)
	transfer, err := f.transfer("HUB-LON", "HUB-PAR", 2)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	withdrawn := transfer.TagIDs[0]
	if _, err := NewMarkRMAHandler(f.store, f.bus, f.clock).Handle(f.ctx, MarkRMACommand{TagID: withdrawn, Reason: "damaged in transit", Actor: operator}); err != nil {
		t.Fatalf("rma in transit: %v", err)
	}
	f.recorder.Reset()

	f.now = f.now.Add(3 * 24 * time.Hour)
	handler := NewResolveOverdueHandler(f.store, f.bus, f.clock, NewConfirmArrivalHandler(f.store, f.bus, f.clock))
	if _, err := handler.Handle(f.ctx, ResolveOverdueCommand{TransferID: transfer.ID, Resolution: domain.ResolutionLost, Actor: operator}); err != nil {
		t.Fatalf("resolve lost: %v", err)
	}
	event := f.expectOneEvent(domain.EventIncidentCreated)
	if len(event.TagIDs) != 1 || event.TagIDs[0] != transfer.TagIDs[1] {
		t.Errorf("expected only the remaining tag to be lost, got %v", event.TagIDs)
	}
	if tag := f.tag(withdrawn); tag.Status != domain.TagStatusRMA {
		t.Errorf("expected %s to stay rma, got %s", withdrawn, tag.Status)
	}
	if tag := f.tag(transfer.TagIDs[1]); tag.Status != domain.TagStatusLost {
		t.Errorf("expected %s lost, got %s", transfer.TagIDs[1], tag.Status)
	}
}

func TestConcurrentAssignAndTransferDoNotOverlap(t *testing.T) {
	f := newFixture(t)
	f.hub("HUB-LON", 0)
	f.hub("HUB-PAR", 0)
	ids := f.receiveN("HUB-LON", "LOT-1", "LON", 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	reserved := map[string]bool{}
	var transfer *domain.Transfer
	var transferErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		transfer, transferErr = f.transfer("HUB-LON", "HUB-PAR", 4)
	}()
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, err := f.assign(id, fmt.Sprintf("SHP-%d", i), "HUB-LON")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				reserved[id] = true
			case errors.Is(err, domain.ErrInvalidStateTransition):
			default:
				t.Errorf("assign %s: unexpected error %v", id, err)
			}
		}(i, id)
	}
	wg.Wait()

	if transferErr != nil {
		if !errors.Is(transferErr, domain.ErrInsufficientStock) {
			t.Fatalf("transfer: unexpected error %v", transferErr)
		}
		if len(reserved) != len(ids) {
			t.Errorf("transfer failed but only %d of %d assigns won", len(reserved), len(ids))
		}
		return
	}

	if len(transfer.TagIDs) != 4 {
		t.Fatalf("expected 4 tags on the transfer, got %d", len(transfer.TagIDs))
	}
	for _, id := range transfer.TagIDs {
		if reserved[id] {
			t.Errorf("tag %s is both reserved and on transfer %s", id, transfer.ID)
		}
		if tag := f.tag(id); tag.Status != domain.TagStatusInTransit {
			t.Errorf("transferred tag %s is %s", id, tag.Status)
		}
	}
	if len(reserved)+len(transfer.TagIDs) != len(ids) {
		t.Errorf("expected every tag to be either reserved or transferred, got %d reserved and %d transferred", len(reserved), len(transfer.TagIDs))
	}
	for id := range reserved {
		if tag := f.tag(id); tag.Status != domain.TagStatusReserved {
			t.Errorf("reserved tag %s is %s", id, tag.Status)
		}
	}
}
