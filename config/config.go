package config

import (
	"fmt"
	"time"

	"github.com/kbukum/runkit/cache"
	"github.com/kbukum/runkit/logger"
	"github.com/kbukum/runkit/runnable"
	"github.com/kbukum/runkit/server"
	"github.com/kbukum/runkit/validation"
)

// ServiceName is the service name used for file lookup and the env prefix.
const ServiceName = "runkit"

// Config is the complete runkit configuration.
type Config struct {
	Base      BaseConfig      `yaml:"base" mapstructure:"base"`
	Logging   logger.Config   `yaml:"logging" mapstructure:"logging"`
	Runtime   RuntimeConfig   `yaml:"runtime" mapstructure:"runtime"`
	Chains    ChainsConfig    `yaml:"chains" mapstructure:"chains"`
	Cache     cache.Config    `yaml:"cache" mapstructure:"cache"`
	Server    server.Config   `yaml:"server" mapstructure:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// RuntimeConfig holds the defaults applied to every chain invocation.
type RuntimeConfig struct {
	// BatchConcurrency is the batch concurrency used when a caller gives none.
	BatchConcurrency int `yaml:"batch_concurrency" mapstructure:"batch_concurrency" validate:"gte=0"`
	// DefaultTimeout bounds each chain invocation. 0 disables it.
	DefaultTimeout time.Duration `yaml:"default_timeout" mapstructure:"default_timeout"`
	// Resilience policies wrapped around every chain.
	Resilience runnable.ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
}

// ChainsConfig locates chain definitions.
type ChainsConfig struct {
	Dirs []string `yaml:"dirs" mapstructure:"dirs" validate:"required,min=1"`
}

// TelemetryConfig controls tracing and metrics export.
type TelemetryConfig struct {
	// Tracing installs an OTLP/HTTP tracer provider.
	Tracing bool `yaml:"tracing" mapstructure:"tracing"`
	// Metrics installs an OTLP/HTTP meter provider.
	Metrics bool `yaml:"metrics" mapstructure:"metrics"`
	// Prometheus records invocations in Prometheus collectors served at /metrics.
	Prometheus bool `yaml:"prometheus" mapstructure:"prometheus"`
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	// Insecure disables TLS towards the endpoint.
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// SampleRate is the trace sampling ratio.
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	// MetricsInterval is the OTLP metric export interval.
	MetricsInterval time.Duration `yaml:"metrics_interval" mapstructure:"metrics_interval"`
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	c.Base.ApplyDefaults()
	if c.Base.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
	if c.Runtime.BatchConcurrency == 0 {
		c.Runtime.BatchConcurrency = 4
	}
	if len(c.Chains.Dirs) == 0 {
		c.Chains.Dirs = []string{"chains"}
	}
	c.Cache.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.Telemetry.Endpoint == "" && (c.Telemetry.Tracing || c.Telemetry.Metrics) {
		c.Telemetry.Endpoint = "localhost:4318"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1.0
	}
	if c.Telemetry.MetricsInterval == 0 {
		c.Telemetry.MetricsInterval = 15 * time.Second
	}
}

// Validate checks struct tags first and then each section's own rules.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if c.Runtime.DefaultTimeout < 0 {
		return fmt.Errorf("config.runtime.default_timeout must be non-negative (got: %s)", c.Runtime.DefaultTimeout)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("config.cache: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}
	return nil
}

// Load reads, defaults and validates the runkit configuration.
func Load(opts ...LoaderOption) (*Config, error) {
	var cfg Config
	if err := LoadConfig(ServiceName, &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
