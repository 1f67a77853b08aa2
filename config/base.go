package config

// BaseConfig identifies the running service.
type BaseConfig struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	// Version overrides the build version reported by /health and telemetry.
	Version string `yaml:"version" mapstructure:"version"`
	// Debug lowers the default log level to debug. It is on in development.
	Debug bool `yaml:"debug" mapstructure:"debug"`
}

// ApplyDefaults fills the service name and environment.
func (c *BaseConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	if c.Environment == "" {
		c.Environment = "development"
		c.Debug = true
	}
}
