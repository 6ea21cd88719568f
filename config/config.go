// Package config loads and validates the turfkit configuration from
// YAML files, .env files, and environment variables, in that order of
// precedence (environment wins).
package config

import (
	"fmt"

	"github.com/openturf/turfkit/apiclient"
	"github.com/openturf/turfkit/connectivity"
	"github.com/openturf/turfkit/logger"
	"github.com/openturf/turfkit/validation"
)

// AppConfig identifies the embedding application.
type AppConfig struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"omitempty,oneof=development staging production"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`
}

// ApplyDefaults applies default values to the app section.
func (c *AppConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
}

// TelemetryConfig configures the OTLP exporters.
type TelemetryConfig struct {
	// Enabled turns trace and metric export on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Insecure allows plaintext export (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// SampleRate is the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// ApplyDefaults applies default values to the telemetry section.
func (c *TelemetryConfig) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
}

// Config is the full turfkit configuration.
type Config struct {
	App       AppConfig                  `yaml:"app" mapstructure:"app"`
	API       apiclient.Config           `yaml:"api" mapstructure:"api"`
	Logger    logger.Config              `yaml:"logger" mapstructure:"logger"`
	Monitor   connectivity.MonitorConfig `yaml:"monitor" mapstructure:"monitor"`
	Manager   connectivity.ManagerConfig `yaml:"manager" mapstructure:"manager"`
	Telemetry TelemetryConfig            `yaml:"telemetry" mapstructure:"telemetry"`
}

// ApplyDefaults fills in zero-value fields across all sections.
func (c *Config) ApplyDefaults() {
	c.App.ApplyDefaults()
	c.API.ApplyDefaults()
	c.Logger.ApplyDefaults()
	c.Monitor.ApplyDefaults()
	c.Manager.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	return nil
}

// Load resolves, loads, applies defaults to, and validates the full
// configuration for the named application.
func Load(appName string, opts ...LoaderOption) (*Config, error) {
	var cfg Config
	if err := LoadInto(appName, &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
