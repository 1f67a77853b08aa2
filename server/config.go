package server

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/runkit/security"
)

// Config holds HTTP server configuration.
type Config struct {
	Host            string `yaml:"host" mapstructure:"host"`
	Port            int    `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout     int    `yaml:"read_timeout" mapstructure:"read_timeout"`         // seconds
	WriteTimeout    int    `yaml:"write_timeout" mapstructure:"write_timeout"`       // seconds
	IdleTimeout     int    `yaml:"idle_timeout" mapstructure:"idle_timeout"`         // seconds
	ShutdownTimeout int    `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"` // seconds
	MaxBodySize     string `yaml:"max_body_size" mapstructure:"max_body_size"`       // e.g. "10MB"
	MaxBatchSize    int    `yaml:"max_batch_size" mapstructure:"max_batch_size"`

	// TLS serves HTTPS (with HTTP/2) when a certificate is configured;
	// otherwise the server speaks cleartext HTTP/1.1 and h2c.
	TLS security.ServerTLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "10MB"
	}
	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = 1000
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	for name, v := range map[string]int{
		"read_timeout":     c.ReadTimeout,
		"write_timeout":    c.WriteTimeout,
		"idle_timeout":     c.IdleTimeout,
		"shutdown_timeout": c.ShutdownTimeout,
		"max_batch_size":   c.MaxBatchSize,
	} {
		if v < 0 {
			return fmt.Errorf("server.%s must be non-negative (got: %d)", name, v)
		}
	}
	if _, err := parseSize(c.MaxBodySize); err != nil {
		return fmt.Errorf("server.max_body_size: %w", err)
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("server.tls: %w", err)
	}
	return nil
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BodyLimit returns MaxBodySize in bytes, 0 when unset or invalid.
func (c *Config) BodyLimit() int64 {
	n, _ := parseSize(c.MaxBodySize)
	return n
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// parseSize reads sizes such as "512", "64KB", "10MB" or "1GB".
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	var multiplier int64 = 1
	for _, u := range []struct {
		suffix string
		mult   int64
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1}} {
		if strings.HasSuffix(s, u.suffix) {
			multiplier = u.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * multiplier, nil
}
