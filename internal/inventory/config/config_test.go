package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != DriverMemory || cfg.HTTPPort != "8082" || cfg.TransferDefaultETA != 24*time.Hour {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Database.Port != "5432" || cfg.Database.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.HTTPTimeout != 30*time.Second || !cfg.HTTPRequestLogging || len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("unexpected http defaults: %+v", cfg)
	}
	if s := cfg.Settings(); s.DefaultDaysOfCover != 14 || s.MaxTransferQuantity != 10000 {
		t.Errorf("unexpected settings: %+v", s)
	}
}

func TestLoadFromEnvironmentAndDotenv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	content := "STORE_DRIVER=postgres\nDB_HOST=db.internal\nALERT_INTERVAL=30s\nHTTP_PORT=9000\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("HTTP_PORT", "8090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Cleanup(func() {
		for _, key := range []string{"STORE_DRIVER", "DB_HOST", "ALERT_INTERVAL"} {
			os.Unsetenv(key)
		}
	})

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != DriverPostgres || cfg.Database.Host != "db.internal" || cfg.AlertInterval != 30*time.Second {
		t.Errorf("dotenv values not applied: %+v", cfg)
	}
	if cfg.HTTPPort != "8090" {
		t.Errorf("environment must win over dotenv, got port %s", cfg.HTTPPort)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.StoreDriver = "sqlite" }, true},
		{"zero eta", func(c *Config) { c.TransferDefaultETA = 0 }, true},
		{"negative cover", func(c *Config) { c.DefaultDaysOfCover = -1 }, true},
		{"zero interval", func(c *Config) { c.AlertInterval = 0 }, true},
		{"production default secret", func(c *Config) { c.Environment, c.JWTSecret = "production", developmentSecret }, true},
		{"production secret", func(c *Config) { c.Environment, c.JWTSecret = "production", "s3cr3t" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{StoreDriver: DriverMemory, TransferDefaultETA: time.Hour, DefaultDaysOfCover: 14, AlertInterval: time.Minute}
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}
