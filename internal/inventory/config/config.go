package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/tair/taghub/internal/inventory/usecase/command"
	"github.com/tair/taghub/pkg/database"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

const developmentSecret = "development-secret"

// Config holds the inventory service configuration.
type Config struct {
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"inventory-service"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8082"`

	HTTPTimeout        time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	HTTPRequestLogging bool          `env:"HTTP_REQUEST_LOGGING" envDefault:"true"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	StoreDriver string          `env:"STORE_DRIVER" envDefault:"memory"`
	Database    database.Config `envPrefix:"DB_"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	JobStatusTTL  time.Duration `env:"JOB_STATUS_TTL" envDefault:"720h"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"inventory-service"`

	JWTSecret string `env:"JWT_SECRET" envDefault:"development-secret"`

	AlertInterval       time.Duration `env:"ALERT_INTERVAL" envDefault:"1m"`
	TransferDefaultETA  time.Duration `env:"TRANSFER_DEFAULT_ETA" envDefault:"24h"`
	DefaultDaysOfCover  float64       `env:"DEFAULT_DAYS_OF_COVER" envDefault:"14"`
	MaxReceiveQuantity  int           `env:"MAX_RECEIVE_QUANTITY" envDefault:"10000"`
	MaxTransferQuantity int           `env:"MAX_TRANSFER_QUANTITY" envDefault:"10000"`

	TracingEnabled bool   `env:"TRACING_ENABLED" envDefault:"false"`
	JaegerEndpoint string `env:"JAEGER_ENDPOINT" envDefault:"http://localhost:14268/api/traces"`
}

// Load reads the given dotenv files, if present, and parses the environment.
// Variables already set in the environment win over dotenv values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges env parsing cannot express.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverPostgres:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q, expected memory or postgres", c.StoreDriver)
	}
	if c.TransferDefaultETA <= 0 {
		return fmt.Errorf("TRANSFER_DEFAULT_ETA must be positive")
	}
	if c.DefaultDaysOfCover <= 0 {
		return fmt.Errorf("DEFAULT_DAYS_OF_COVER must be positive")
	}
	if c.AlertInterval <= 0 {
		return fmt.Errorf("ALERT_INTERVAL must be positive")
	}
	if !c.IsDevelopment() && (c.JWTSecret == "" || c.JWTSecret == developmentSecret) {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

// IsDevelopment reports whether the service runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.Environment != "production"
}

// Settings returns the command settings derived from the configuration.
func (c *Config) Settings() command.Settings {
	return command.Settings{
		DefaultTransferETA:  c.TransferDefaultETA,
		DefaultDaysOfCover:  c.DefaultDaysOfCover,
		MaxReceiveQuantity:  c.MaxReceiveQuantity,
		MaxTransferQuantity: c.MaxTransferQuantity,
	}
}
