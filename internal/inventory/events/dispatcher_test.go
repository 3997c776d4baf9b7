package events

import (
	"context"
	"errors"
	"testing"

	"github.com/tair/taghub/internal/inventory/domain"
)

type recordingSink struct{ events []domain.Event }

func (r *recordingSink) Name() string { return "recorder" }

func (r *recordingSink) Handle(_ context.Context, event domain.Event) error {
	r.events = append(r.events, event)
	return nil
}

type failingSink struct{ calls int }

func (f *failingSink) Name() string { return "failing" }

func (f *failingSink) Handle(context.Context, domain.Event) error {
	f.calls++
	return errors.New("broker unavailable")
}

func TestDispatcherFansOutDespiteFailures(t *testing.T) {
	failing := &failingSink{}
	recorder := &recordingSink{}
	d := NewDispatcher(failing)
	d.Register(recorder)

	d.Publish(context.Background(),
		domain.Event{ID: "E1", Type: domain.EventTagAssigned},
		domain.Event{ID: "E2", Type: domain.EventTagApplied},
	)

	if failing.calls != 2 {
		t.Errorf("expected failing sink to be called twice, got %d", failing.calls)
	}
	got := recorder.events
	if len(got) != 2 || got[0].ID != "E1" || got[1].ID != "E2" {
		t.Errorf("expected both events in order, got %+v", got)
	}
}
