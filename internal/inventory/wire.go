//go:build wireinject
// +build wireinject

package inventory

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/taghub/internal/inventory/config"
	"github.com/tair/taghub/internal/inventory/domain"
	"github.com/tair/taghub/internal/inventory/jobstatus"
)

// InitializeService wires the inventory service over a store and job tracker
func InitializeService(cfg *config.Config, store domain.Store, tracker jobstatus.Tracker, reg prometheus.Registerer) (*Service, error) {
	wire.Build(
		InfrastructureSet,
		UseCaseSet,
		DeliverySet,
	)
	return nil, nil
}
