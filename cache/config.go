package cache

import (
	"fmt"
	"time"

	"github.com/kbukum/runkit/security"
)

// Backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config selects and configures the cache backend.
type Config struct {
	// Enabled turns caching on for chains that ask for it.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Backend is "memory" or "redis".
	Backend string `yaml:"backend" mapstructure:"backend"`
	// TTL is the default entry lifetime (e.g. "10m"). Empty means no expiry.
	TTL string `yaml:"ttl" mapstructure:"ttl"`
	// Prefix namespaces every key.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	// Redis configures the redis backend.
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.Prefix == "" {
		c.Prefix = "runkit"
	}
	c.Redis.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("cache.redis: %w", err)
		}
	default:
		return fmt.Errorf("cache.backend must be %q or %q (got: %s)", BackendMemory, BackendRedis, c.Backend)
	}
	if c.TTL != "" {
		if _, err := time.ParseDuration(c.TTL); err != nil {
			return fmt.Errorf("invalid cache.ttl %q: %w", c.TTL, err)
		}
	}
	return nil
}

// DefaultTTL returns the parsed TTL, or 0 when unset.
func (c *Config) DefaultTTL() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string `yaml:"addr" mapstructure:"addr"`
	// Password is the Redis server password.
	Password string `yaml:"password" mapstructure:"password"`
	// DB is the Redis database number.
	DB int `yaml:"db" mapstructure:"db"`
	// PoolSize is the maximum number of socket connections.
	PoolSize int `yaml:"pool_size" mapstructure:"pool_size"`
	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	// MaxRetries is the maximum number of retries before giving up.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`
	// DialTimeout is the timeout for establishing new connections (e.g. "5s").
	DialTimeout string `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	// ReadTimeout is the timeout for socket reads (e.g. "3s").
	ReadTimeout string `yaml:"read_timeout" mapstructure:"read_timeout"`
	// WriteTimeout is the timeout for socket writes (e.g. "3s").
	WriteTimeout string `yaml:"write_timeout" mapstructure:"write_timeout"`
	// TLS configures the connection to a TLS-enabled Redis.
	TLS security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *RedisConfig) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "3s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "3s"
	}
}

// Validate checks that required fields are present and parseable.
func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be > 0")
	}
	for name, v := range map[string]string{
		"dial_timeout":  c.DialTimeout,
		"read_timeout":  c.ReadTimeout,
		"write_timeout": c.WriteTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("tls: %w", err)
	}
	return nil
}
