package main

// @title Tag Inventory Service API
// @version 1.0
// @description Tag lifecycle, hub transfers and replenishment alerts with full observability (logging, tracing, metrics)
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://github.com/tair/taghub
// @contact.email support@example.com

// @license.name MIT
// @license.url https://github.com/tair/taghub/blob/main/LICENSE

// @host localhost:8082
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name Hubs
// @tag.description Hub registry, thresholds and stock validation

// @tag.name Tags
// @tag.description Tag lifecycle operations

// @tag.name Lots
// @tag.description Lot quarantine

// @tag.name Transfers
// @tag.description Inter-hub transfers and overdue resolution

// @tag.name Reporting
// @tag.description Alerts and telemetry

// @tag.name Audit
// @tag.description Event journal, movement log and incidents

// @tag.name Swagger
// @tag.description Swagger documentation endpoints
