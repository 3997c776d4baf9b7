package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/tair/taghub/internal/inventory/alert"
	"github.com/tair/taghub/internal/inventory/domain"
	"github.com/tair/taghub/internal/inventory/usecase/query"
	"github.com/tair/taghub/pkg/logger"
)

// DefaultInterval is used when the monitor is created without one.
const DefaultInterval = time.Minute

// Observer receives the telemetry side effects of an evaluation.
type Observer interface {
	ObserveCover(hubID string, daysOfCover float64)
	ObserveAlertCycle(d time.Duration)
}

// Broadcaster pushes the current alert set to live dashboards.
type Broadcaster interface {
	Broadcast(messageType string, data any) (int, error)
}

// AlertMonitor periodically recomputes alerts. It only observes: it records
// telemetry, logs raised and cleared alerts and broadcasts the report. It
// never changes inventory state.
type AlertMonitor struct {
	alerts      *query.GetAlertsHandler
	observer    Observer
	broadcaster Broadcaster
	clock       domain.Clock
	interval    time.Duration

	mu   sync.Mutex
	open map[string]time.Time
}

// NewAlertMonitor creates a new alert monitor
func NewAlertMonitor(alerts *query.GetAlertsHandler, observer Observer, broadcaster Broadcaster, clock domain.Clock, interval time.Duration) *AlertMonitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &AlertMonitor{
		alerts:      alerts,
		observer:    observer,
		broadcaster: broadcaster,
		clock:       clock,
		interval:    interval,
		open:        make(map[string]time.Time),
	}
}

// Run ticks until ctx is done.
func (m *AlertMonitor) Run(ctx context.Context) {
	logger.Logger.Info().Dur("interval", m.interval).Msg("Alert monitor started")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if _, err := m.Tick(ctx); err != nil {
			logger.WithContext(ctx).Error().Err(err).Msg("Alert evaluation failed")
		}
		select {
		case <-ctx.Done():
			logger.Logger.Info().Msg("Alert monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick performs one evaluation.
func (m *AlertMonitor) Tick(ctx context.Context) (*alert.Report, error) {
	report, err := m.alerts.Handle(ctx, query.GetAlertsQuery{})
	if err != nil {
		return nil, err
	}
	now := m.clock()

	for _, hub := range report.Hubs {
		m.observer.ObserveCover(hub.HubID, float64(hub.DaysOfCover))
	}
	m.track(ctx, report.Alerts, now)

	if m.broadcaster != nil {
		if _, err := m.broadcaster.Broadcast("alerts", report); err != nil {
			logger.WithContext(ctx).Warn().Err(err).Msg("Failed to broadcast alerts")
		}
	}
	return report, nil
}

// OpenAlerts returns the ids of alerts seen on the last tick with the time
// each was first raised.
func (m *AlertMonitor) OpenAlerts() map[string]time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	open := make(map[string]time.Time, len(m.open))
	for id, since := range m.open {
		open[id] = since
	}
	return open
}

func (m *AlertMonitor) track(ctx context.Context, alerts []alert.Alert, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := make(map[string]struct{}, len(alerts))
	for _, a := range alerts {
		current[a.ID] = struct{}{}
		if _, ok := m.open[a.ID]; ok {
			continue
		}
		m.open[a.ID] = now
		logger.WithContext(ctx).Info().
			Str("alert_id", a.ID).
			Str("severity", string(a.Severity)).
			Str("hub_id", a.HubID).
			Msg("Alert raised")
	}

	for id, since := range m.open {
		if _, ok := current[id]; ok {
			continue
		}
		delete(m.open, id)
		m.observer.ObserveAlertCycle(now.Sub(since))
		logger.WithContext(ctx).Info().
			Str("alert_id", id).
			Dur("open_for", now.Sub(since)).
			Msg("Alert cleared")
	}
}
