package repository

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/taghub/internal/inventory/domain"
)

var tracer = otel.Tracer("inventory-repository")

// StoreWithTracing wraps a Store with one span per transaction
type StoreWithTracing struct {
	store   domain.Store
	backend string
}

// NewStoreWithTracing creates a new store with tracing
func NewStoreWithTracing(store domain.Store, backend string) *StoreWithTracing {
	return &StoreWithTracing{store: store, backend: backend}
}

// Update with tracing
func (s *StoreWithTracing) Update(ctx context.Context, fn func(tx domain.Tx) error) error {
	ctx, span := tracer.Start(ctx, "repository.Update",
		trace.WithAttributes(
			attribute.String("store.backend", s.backend),
			attribute.Bool("store.read_only", false),
		),
	)
	defer span.End()

	err := s.store.Update(ctx, fn)
	addStoreErrorToSpan(span, err)
	return err
}

// View with tracing
func (s *StoreWithTracing) View(ctx context.Context, fn func(tx domain.ReadTx) error) error {
	ctx, span := tracer.Start(ctx, "repository.View",
		trace.WithAttributes(
			attribute.String("store.backend", s.backend),
			attribute.Bool("store.read_only", true),
		),
	)
	defer span.End()

	err := s.store.View(ctx, fn)
	addStoreErrorToSpan(span, err)
	return err
}

// Domain errors are expected outcomes and only recorded as span events;
// anything else marks the span as failed.
func addStoreErrorToSpan(span trace.Span, err error) {
	if err == nil {
		return
	}
	if code := domain.CodeOf(err); code != "" {
		span.AddEvent("inventory.rejected", trace.WithAttributes(attribute.String("error.code", string(code))))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, fmt.Sprintf("database error: %v", err))
}
