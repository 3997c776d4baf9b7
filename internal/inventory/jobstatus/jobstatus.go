package jobstatus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tair/taghub/pkg/logger"
)

// Status is the lifecycle state of a downstream fulfillment job.
type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == StatusStarted || s == StatusCompleted || s == StatusCancelled
}

// started reports whether a job in status s has begun processing.
func (s Status) started() bool {
	return s == StatusStarted || s == StatusCompleted
}

// Recorder stores job status updates received from the fulfillment system.
type Recorder interface {
	SetStatus(ctx context.Context, shipmentID string, status Status) error
}

// Tracker both answers and records job status.
type Tracker interface {
	HasStarted(ctx context.Context, shipmentID string) (bool, error)
	Recorder
}

const keyPrefix = "fulfillment:job:"

// DefaultTTL bounds how long a job status is remembered.
const DefaultTTL = 30 * 24 * time.Hour

// RedisChecker answers job status queries from Redis. A missing key means
// the job has not started.
type RedisChecker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisChecker creates a new redis backed checker
func NewRedisChecker(client *redis.Client, ttl time.Duration) *RedisChecker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisChecker{client: client, ttl: ttl}
}

// HasStarted implements domain.JobStatusChecker.
func (c *RedisChecker) HasStarted(ctx context.Context, shipmentID string) (bool, error) {
	value, err := c.client.Get(ctx, keyPrefix+shipmentID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read job status: %w", err)
	}
	return Status(value).started(), nil
}

// SetStatus implements Recorder.
func (c *RedisChecker) SetStatus(ctx context.Context, shipmentID string, status Status) error {
	if err := c.client.Set(ctx, keyPrefix+shipmentID, string(status), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write job status: %w", err)
	}
	logger.Logger.Debug().
		Str("shipment_id", shipmentID).
		Str("status", string(status)).
		Msg("Job status recorded")
	return nil
}

// StaticChecker keeps job statuses in memory. It is used when Redis is not
// configured and in tests.
type StaticChecker struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

// NewStaticChecker creates an empty in-memory checker
func NewStaticChecker() *StaticChecker {
	return &StaticChecker{statuses: make(map[string]Status)}
}

// HasStarted implements domain.JobStatusChecker.
func (c *StaticChecker) HasStarted(_ context.Context, shipmentID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statuses[shipmentID].started(), nil
}

// SetStatus implements Recorder.
func (c *StaticChecker) SetStatus(_ context.Context, shipmentID string, status Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[shipmentID] = status
	return nil
}
