package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/tair/taghub/docs"
	"github.com/tair/taghub/internal/inventory"
	"github.com/tair/taghub/internal/inventory/config"
	httpDelivery "github.com/tair/taghub/internal/inventory/delivery/http"
	"github.com/tair/taghub/internal/inventory/domain"
	"github.com/tair/taghub/internal/inventory/jobstatus"
	"github.com/tair/taghub/internal/inventory/repository"
	"github.com/tair/taghub/kafka"
	"github.com/tair/taghub/pkg/database"
	"github.com/tair/taghub/pkg/logger"
	"github.com/tair/taghub/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		logger.Init("inventory-service", "development", "info")
		logger.Logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.ServiceName, cfg.Environment, cfg.LogLevel)
	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Str("store_driver", cfg.StoreDriver).
		Msg("Starting inventory service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(cfg.ServiceName, cfg.JaegerEndpoint)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	store, healthCheck, closeStore := openStore(cfg)
	defer closeStore()

	tracker := openJobTracker(ctx, cfg)

	// Initialize service with Wire DI
	service, err := inventory.InitializeService(cfg, store, tracker, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize service")
	}

	if len(cfg.KafkaBrokers) > 0 {
		closeKafka := startKafka(ctx, cfg, service, tracker)
		defer closeKafka()
	} else {
		logger.Logger.Warn().Msg("KAFKA_BROKERS not set, events stay in process and job status is not consumed")
	}

	go service.Hub.Run(ctx)
	go service.Monitor.Run(ctx)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           newRouter(cfg, service, healthCheck),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Logger.Info().
			Str("port", cfg.HTTPPort).
			Str("metrics_endpoint", "/metrics").
			Str("websocket_endpoint", "/ws").
			Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	<-ctx.Done()
	logger.Logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	logger.Logger.Info().Msg("Server exited")
}

// openStore selects the configured store and wraps it with tracing.
func openStore(cfg *config.Config) (domain.Store, func(context.Context) error, func()) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Logger.Warn().Msg("Using in-memory store, state is lost on restart")
		return repository.NewStoreWithTracing(repository.NewMemoryStore(), config.DriverMemory), nil, func() {}
	}

	db, err := database.NewGormConnection(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}

	gormStore := repository.NewGormStore(db)
	if err := gormStore.AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	logger.Logger.Info().Msg("Database initialized successfully")

	closeDB := func() {
		if err := sqlDB.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to close database")
		}
	}
	return repository.NewStoreWithTracing(gormStore, config.DriverPostgres), sqlDB.PingContext, closeDB
}

// openJobTracker returns the Redis backed job tracker, or an in-process one
// when Redis is not configured.
func openJobTracker(ctx context.Context, cfg *config.Config) jobstatus.Tracker {
	if cfg.RedisAddr == "" {
		logger.Logger.Warn().Msg("REDIS_ADDR not set, using in-process job status")
		return jobstatus.NewStaticChecker()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
	}
	logger.Logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	return jobstatus.NewRedisChecker(client, cfg.JobStatusTTL)
}

// startKafka registers the Kafka event sink and starts the fulfillment job
// consumer.
func startKafka(ctx context.Context, cfg *config.Config, service *inventory.Service, tracker jobstatus.Tracker) func() {
	publisher, err := kafka.NewPublisher(cfg.KafkaBrokers)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create Kafka publisher")
	}
	service.Dispatcher.Register(publisher)

	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, []string{kafka.TopicFulfillmentJobs})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create Kafka consumer")
	}
	consumer.RegisterJobStatusRecorder(tracker)
	if err := consumer.Start(ctx); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to start Kafka consumer")
	}

	return func() {
		if err := consumer.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to close Kafka consumer")
		}
		if err := publisher.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to close Kafka publisher")
		}
	}
}

func newRouter(cfg *config.Config, service *inventory.Service, healthCheck func(context.Context) error) http.Handler {
	router := mux.NewRouter()

	// Upgraded and scraped endpoints bypass the timeout and logging wrappers
	router.HandleFunc("/ws", service.Hub.ServeWS)
	router.Handle("/metrics", promhttp.Handler())

	middlewareConfig := httpDelivery.NewMiddlewareConfig(cfg)
	api := router.NewRoute().Subrouter()
	httpDelivery.RegisterMiddlewares(api, middlewareConfig)

	service.Handler.RegisterRoutes(api)
	service.Handler.RegisterHealthCheck(api, healthCheck)
	httpDelivery.RegisterSwaggerDocs(api, httpSwagger.WrapHandler)

	return httpDelivery.SetupCORS(middlewareConfig)(router)
}
