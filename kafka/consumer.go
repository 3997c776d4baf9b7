package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/taghub/internal/inventory/jobstatus"
	"github.com/tair/taghub/pkg/logger"
)

// Consumer wraps Kafka consumer
type Consumer struct {
	consumer      sarama.ConsumerGroup
	groupID       string
	topics        []string
	handlers      map[string]EventHandler
	handlersMutex sync.RWMutex
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event JobEvent) error

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, groupID string, topics []string) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("group_id", groupID).
		Strs("topics", topics).
		Msg("Kafka consumer initialized")

	c := newConsumer(groupID, topics)
	c.consumer = group
	return c, nil
}

func newConsumer(groupID string, topics []string) *Consumer {
	return &Consumer{
		groupID:  groupID,
		topics:   topics,
		handlers: make(map[string]EventHandler),
	}
}

// RegisterHandler registers an event handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler EventHandler) {
	c.handlersMutex.Lock()
	defer c.handlersMutex.Unlock()
	c.handlers[eventType] = handler
	logger.Logger.Info().
		Str("event_type", eventType).
		Msg("Event handler registered")
}

// RegisterJobStatusRecorder routes every job event type to recorder.
func (c *Consumer) RegisterJobStatusRecorder(recorder jobstatus.Recorder) {
	handler := JobStatusHandler(recorder)
	for _, eventType := range JobEventTypes() {
		c.RegisterHandler(eventType, handler)
	}
}

// JobStatusHandler returns a handler that records the job status carried by
// each event.
func JobStatusHandler(recorder jobstatus.Recorder) EventHandler {
	return func(ctx context.Context, event JobEvent) error {
		status, ok := jobStatuses[event.EventType]
		if !ok {
			return fmt.Errorf("unknown job event type %q", event.EventType)
		}
		if event.ShipmentID == "" {
			return errors.New("job event without shipment id")
		}
		return recorder.SetStatus(ctx, event.ShipmentID, status)
	}
}

// Start starts consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{
		consumer: c,
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Logger.Info().Msg("Consumer context cancelled, stopping...")
				return
			default:
				if err := c.consumer.Consume(ctx, c.topics, handler); err != nil {
					logger.Logger.Error().
						Err(err).
						Msg("Error from consumer")
				}
			}
		}
	}()

	// Handle errors
	go func() {
		for err := range c.consumer.Errors() {
			logger.Logger.Error().
				Err(err).
				Msg("Consumer error")
		}
	}()

	logger.Logger.Info().
		Strs("topics", c.topics).
		Str("group_id", c.groupID).
		Msg("Kafka consumer started")

	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	if c.consumer != nil {
		return c.consumer.Close()
	}
	return nil
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim marks every message, including ones that fail: job status is
// advisory and a poison message must not stall the partition.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		_ = h.consumer.handleMessage(session.Context(), message)
		session.MarkMessage(message, "")
	}
	return nil
}

func (c *Consumer) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	// Extract trace context from Kafka headers
	carrier := propagation.MapCarrier{}
	eventType := ""
	for _, header := range message.Headers {
		switch key := string(header.Key); key {
		case "traceparent", "tracestate":
			carrier[key] = string(header.Value)
		case "event_type":
			eventType = string(header.Value)
		}
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	tracer := otel.Tracer("kafka-consumer")
	ctx, span := tracer.Start(ctx, "kafka.consume.job_event",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.source", message.Topic),
			attribute.String("messaging.source_kind", "topic"),
			attribute.Int("messaging.kafka.partition", int(message.Partition)),
			attribute.Int64("messaging.kafka.offset", message.Offset),
		),
	)
	defer span.End()

	var event JobEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to unmarshal event")
		logger.WithContext(ctx).Error().Err(err).Str("topic", message.Topic).Msg("Failed to unmarshal event")
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if eventType == "" {
		eventType = event.EventType
	}
	event.EventType = eventType
	span.SetAttributes(
		attribute.String("event.type", eventType),
		attribute.String("event.id", event.EventID),
		attribute.String("shipment.id", event.ShipmentID),
	)

	c.handlersMutex.RLock()
	handler, exists := c.handlers[eventType]
	c.handlersMutex.RUnlock()
	if !exists {
		span.SetStatus(codes.Error, "No handler registered")
		logger.WithContext(ctx).Warn().
			Str("event_type", eventType).
			Msg("No handler registered for event type")
		return fmt.Errorf("no handler registered for event type %q", eventType)
	}

	if err := handler(ctx, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to handle event")
		logger.WithContext(ctx).Error().
			Err(err).
			Str("event_type", eventType).
			Str("event_id", event.EventID).
			Msg("Failed to handle event")
		return err
	}

	span.SetStatus(codes.Ok, "Event handled successfully")
	logger.WithContext(ctx).Info().
		Str("event_type", eventType).
		Str("event_id", event.EventID).
		Str("shipment_id", event.ShipmentID).
		Msg("Event handled successfully")
	return nil
}
