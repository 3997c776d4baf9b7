package events

import (
	"context"
	"sync"

	"github.com/tair/taghub/internal/inventory/domain"
	"github.com/tair/taghub/pkg/logger"
)

// Sink receives committed inventory events.
type Sink interface {
	Name() string
	Handle(ctx context.Context, event domain.Event) error
}

// Dispatcher fans committed events out to every registered sink. A failing
// sink is logged and never affects the operation that produced the event.
type Dispatcher struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewDispatcher creates a dispatcher with the given sinks
func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks}
}

// Register adds a sink
func (d *Dispatcher) Register(sink Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, sink)
}

// Publish delivers events to all sinks in registration order.
func (d *Dispatcher) Publish(ctx context.Context, events ...domain.Event) {
	d.mu.RLock()
	sinks := make([]Sink, len(d.sinks))
	copy(sinks, d.sinks)
	d.mu.RUnlock()

	for _, event := range events {
		for _, sink := range sinks {
			if err := sink.Handle(ctx, event); err != nil {
				logger.WithContext(ctx).Warn().
					Err(err).
					Str("sink", sink.Name()).
					Str("event_id", event.ID).
					Str("event_type", string(event.Type)).
					Msg("Event sink failed")
			}
		}
	}
}
