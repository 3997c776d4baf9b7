package inventory

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/taghub/internal/inventory/config"
	"github.com/tair/taghub/internal/inventory/delivery/http"
	"github.com/tair/taghub/internal/inventory/delivery/ws"
	"github.com/tair/taghub/internal/inventory/domain"
	"github.com/tair/taghub/internal/inventory/events"
	"github.com/tair/taghub/internal/inventory/jobstatus"
	"github.com/tair/taghub/internal/inventory/monitor"
	"github.com/tair/taghub/internal/inventory/telemetry"
	"github.com/tair/taghub/internal/inventory/usecase"
	"github.com/tair/taghub/internal/inventory/usecase/command"
)

// Service holds the wired components main starts and serves.
type Service struct {
	Handler    *http.InventoryHandler
	Dispatcher *events.Dispatcher
	Hub        *ws.Hub
	Monitor    *monitor.AlertMonitor
	Collector  *telemetry.Collector
}

// NewService creates a new service
func NewService(handler *http.InventoryHandler, dispatcher *events.Dispatcher, hub *ws.Hub, alertMonitor *monitor.AlertMonitor, collector *telemetry.Collector) *Service {
	return &Service{
		Handler:    handler,
		Dispatcher: dispatcher,
		Hub:        hub,
		Monitor:    alertMonitor,
		Collector:  collector,
	}
}

// ProvideClock provides the wall clock
func ProvideClock() domain.Clock {
	return domain.SystemClock
}

// ProvideSettings provides command settings from config
func ProvideSettings(cfg *config.Config) command.Settings {
	return cfg.Settings()
}

// ProvideCollector provides the telemetry collector
func ProvideCollector(reg prometheus.Registerer) *telemetry.Collector {
	return telemetry.NewCollector(reg)
}

// ProvideDispatcher provides the event dispatcher with the in-process sinks.
// The Kafka sink is registered by main when brokers are configured.
func ProvideDispatcher(collector *telemetry.Collector, hub *ws.Hub) *events.Dispatcher {
	return events.NewDispatcher(collector, hub)
}

// ProvideEventPublisher provides the publisher used by command handlers
func ProvideEventPublisher(dispatcher *events.Dispatcher) domain.EventPublisher {
	return dispatcher
}

// ProvideJobStatusChecker provides the job status checker
func ProvideJobStatusChecker(tracker jobstatus.Tracker) domain.JobStatusChecker {
	return tracker
}

// ProvideAuthenticator provides the JWT authenticator
func ProvideAuthenticator(cfg *config.Config) *http.Authenticator {
	return http.NewAuthenticator(cfg.JWTSecret)
}

// ProvideAlertMonitor provides the background alert monitor
func ProvideAlertMonitor(queries *usecase.Queries, collector *telemetry.Collector, hub *ws.Hub, clock domain.Clock, cfg *config.Config) *monitor.AlertMonitor {
	return monitor.NewAlertMonitor(queries.GetAlerts, collector, hub, clock, cfg.AlertInterval)
}

// Wire sets
var InfrastructureSet = wire.NewSet(
	ProvideClock,
	ProvideSettings,
	ProvideCollector,
	ws.NewHub,
	ProvideDispatcher,
	ProvideEventPublisher,
	ProvideJobStatusChecker,
)

var UseCaseSet = wire.NewSet(
	usecase.NewCommands,
	usecase.NewQueries,
)

var DeliverySet = wire.NewSet(
	ProvideAuthenticator,
	http.NewInventoryHandler,
	ProvideAlertMonitor,
	NewService,
)
