package usecase

import (
	"github.com/tair/taghub/internal/inventory/domain"
	"github.com/tair/taghub/internal/inventory/usecase/command"
	"github.com/tair/taghub/internal/inventory/usecase/query"
)

// Commands groups every write-side handler of the inventory service.
type Commands struct {
	ReceiveTags       *command.ReceiveTagsHandler
	AssignTag         *command.AssignTagHandler
	ApplyTag          *command.ApplyTagHandler
	UnreserveTag      *command.UnreserveTagHandler
	MarkRMA           *command.MarkRMAHandler
	QuarantineLot     *command.QuarantineLotHandler
	ReleaseQuarantine *command.ReleaseQuarantineHandler
	InitiateTransfer  *command.InitiateTransferHandler
	ConfirmArrival    *command.ConfirmArrivalHandler
	ResolveOverdue    *command.ResolveOverdueHandler
	CreateHub         *command.CreateHubHandler
	UpdateThreshold   *command.UpdateThresholdHandler
	RecordUsage       *command.RecordUsageHandler
}

// NewCommands creates all command handlers over one store and publisher
func NewCommands(store domain.Store, publisher domain.EventPublisher, jobs domain.JobStatusChecker, clock domain.Clock, settings command.Settings) *Commands {
	arrival := command.NewConfirmArrivalHandler(store, publisher, clock)
	return &Commands{
		ReceiveTags:       command.NewReceiveTagsHandler(store, publisher, clock, settings),
		AssignTag:         command.NewAssignTagHandler(store, publisher, clock),
		ApplyTag:          command.NewApplyTagHandler(store, publisher, clock),
		UnreserveTag:      command.NewUnreserveTagHandler(store, publisher, jobs, clock),
		MarkRMA:           command.NewMarkRMAHandler(store, publisher, clock),
		QuarantineLot:     command.NewQuarantineLotHandler(store, publisher, clock),
		ReleaseQuarantine: command.NewReleaseQuarantineHandler(store, publisher, clock),
		InitiateTransfer:  command.NewInitiateTransferHandler(store, publisher, clock, settings),
		ConfirmArrival:    arrival,
		ResolveOverdue:    command.NewResolveOverdueHandler(store, publisher, clock, arrival),
		CreateHub:         command.NewCreateHubHandler(store, clock, settings),
		UpdateThreshold:   command.NewUpdateThresholdHandler(store, publisher, clock),
		RecordUsage:       command.NewRecordUsageHandler(store, clock),
	}
}

// Queries groups every read-side handler of the inventory service.
type Queries struct {
	GetAlerts     *query.GetAlertsHandler
	CheckOverdue  *query.CheckOverdueHandler
	ValidateStock *query.ValidateStockHandler
	HubSummary    *query.HubSummaryHandler
	ListTags      *query.ListTagsHandler
	GetTag        *query.GetTagHandler
	ListTransfers *query.ListTransfersHandler
	QueryEvents   *query.QueryEventsHandler
	ListMovements *query.ListMovementsHandler
	ListIncidents *query.ListIncidentsHandler
}

// NewQueries creates all query handlers
func NewQueries(store domain.Store, clock domain.Clock) *Queries {
	return &Queries{
		GetAlerts:     query.NewGetAlertsHandler(store, clock),
		CheckOverdue:  query.NewCheckOverdueHandler(store, clock),
		ValidateStock: query.NewValidateStockHandler(store),
		HubSummary:    query.NewHubSummaryHandler(store, clock),
		ListTags:      query.NewListTagsHandler(store),
		GetTag:        query.NewGetTagHandler(store),
		ListTransfers: query.NewListTransfersHandler(store),
		QueryEvents:   query.NewQueryEventsHandler(store),
		ListMovements: query.NewListMovementsHandler(store),
		ListIncidents: query.NewListIncidentsHandler(store),
	}
}
