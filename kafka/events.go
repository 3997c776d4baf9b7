package kafka

import (
	"time"

	"github.com/tair/taghub/internal/inventory/jobstatus"
)

// JobEvent is a fulfillment job lifecycle event published by the
// fulfillment system.
type JobEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	JobID      string    `json:"job_id"`
	ShipmentID string    `json:"shipment_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypeJobStarted   = "fulfillment.job.started"
	EventTypeJobCompleted = "fulfillment.job.completed"
	EventTypeJobCancelled = "fulfillment.job.cancelled"
)

// Kafka topics
const (
	TopicInventoryEvents = "inventory-events"
	TopicFulfillmentJobs = "fulfillment-jobs"
)

// jobStatuses maps job event types to the recorded status.
var jobStatuses = map[string]jobstatus.Status{
	EventTypeJobStarted:   jobstatus.StatusStarted,
	EventTypeJobCompleted: jobstatus.StatusCompleted,
	EventTypeJobCancelled: jobstatus.StatusCancelled,
}

// JobEventTypes lists the job event types the inventory service consumes.
func JobEventTypes() []string {
	return []string{EventTypeJobStarted, EventTypeJobCompleted, EventTypeJobCancelled}
}
