// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg, err := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	workers := cfg.Reconcile.Workers
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the entire application configuration
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Reconcile     ReconcileConfig     `yaml:"reconcile"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	Driver       string `yaml:"driver"`        // "sqlite" (default) or "postgres" for the result sink
	DatabasePath string `yaml:"database_path"` // SQLite file holding documents, ledger and results
	PostgresDSN  string `yaml:"postgres_dsn"`
}

// ReconcileConfig holds batch settings
type ReconcileConfig struct {
	Mode              string   `yaml:"mode"`    // "one_to_one" or "ledger"
	Workers           int      `yaml:"workers"` // Concurrent documents
	BatchLimit        int      `yaml:"batch_limit"`
	BookingType       string   `yaml:"booking_type"`
	ExpenseClientID   string   `yaml:"expense_client_id"`
	PANList           []string `yaml:"pan_list"` // Buyer PANs whose ledger rows are loaded
	ExcludeVendorType string   `yaml:"exclude_vendor_type"`
	TaxRate           int      `yaml:"tax_rate"`
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" (Maven-style console) or "json"
}

// TracingConfig holds OpenTelemetry exporter settings
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// envSettings is the flat environment variable view of Config
type envSettings struct {
	StorageDriver     string   `envconfig:"STORAGE_DRIVER" default:"sqlite"`
	DatabasePath      string   `envconfig:"GST_DB_PATH" default:"gst_reconcile.db"`
	PostgresDSN       string   `envconfig:"POSTGRES_DSN"`
	Mode              string   `envconfig:"RECONCILE_MODE" default:"one_to_one"`
	Workers           int      `envconfig:"RECONCILE_WORKERS" default:"30"`
	BatchLimit        int      `envconfig:"RECONCILE_BATCH_LIMIT" default:"900"`
	BookingType       string   `envconfig:"BOOKING_TYPE" default:"HOTEL"`
	ExpenseClientID   string   `envconfig:"EXPENSE_CLIENT_ID"`
	PANList           []string `envconfig:"PAN_LIST"`
	ExcludeVendorType string   `envconfig:"EXCLUDE_VENDOR_TYPE" default:"Air"`
	TaxRate           int      `envconfig:"TAX_RATE" default:"12"`
	APIPort           int      `envconfig:"API_PORT" default:"8080"`
	AllowedOrigins    []string `envconfig:"API_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	LogLevel          string   `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat         string   `envconfig:"LOG_FORMAT" default:"text"`
	TracingEnabled    bool     `envconfig:"TRACING_ENABLED"`
	TracingEndpoint   string   `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	ServiceName       string   `envconfig:"OTEL_SERVICE_NAME" default:"gst-reconcile"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${POSTGRES_DSN})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() (*Config, error) {
	var env envSettings
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	return &Config{
		Storage: StorageConfig{
			Driver:       env.StorageDriver,
			DatabasePath: env.DatabasePath,
			PostgresDSN:  env.PostgresDSN,
		},
		Reconcile: ReconcileConfig{
			Mode:              env.Mode,
			Workers:           env.Workers,
			BatchLimit:        env.BatchLimit,
			BookingType:       env.BookingType,
			ExpenseClientID:   env.ExpenseClientID,
			PANList:           env.PANList,
			ExcludeVendorType: env.ExcludeVendorType,
			TaxRate:           env.TaxRate,
		},
		API: APIConfig{
			Port:           env.APIPort,
			AllowedOrigins: env.AllowedOrigins,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  env.LogLevel,
				Format: env.LogFormat,
			},
			Tracing: TracingConfig{
				Enabled:     env.TracingEnabled,
				Endpoint:    env.TracingEndpoint,
				ServiceName: env.ServiceName,
			},
		},
	}, nil
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() (*Config, error) {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) (*Config, error) {
	if cfg, err := Load(path); err == nil {
		return cfg, nil
	}
	return LoadFromEnv()
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Reconcile.Mode != "one_to_one" && c.Reconcile.Mode != "ledger" {
		return fmt.Errorf("unknown reconcile mode %q", c.Reconcile.Mode)
	}
	if c.Reconcile.Workers <= 0 {
		return fmt.Errorf("reconcile.workers must be positive, got %d", c.Reconcile.Workers)
	}
	return nil
}

// applyDefaults fills in settings a YAML file left out
func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "gst_reconcile.db"
	}
	if c.Reconcile.Mode == "" {
		c.Reconcile.Mode = "one_to_one"
	}
	if c.Reconcile.Workers == 0 {
		c.Reconcile.Workers = 30
	}
	if c.Reconcile.BatchLimit == 0 {
		c.Reconcile.BatchLimit = 900
	}
	if c.Reconcile.BookingType == "" {
		c.Reconcile.BookingType = "HOTEL"
	}
	if c.Reconcile.TaxRate == 0 {
		c.Reconcile.TaxRate = 12
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
	if c.Observability.Tracing.ServiceName == "" {
		c.Observability.Tracing.ServiceName = "gst-reconcile"
	}
}
