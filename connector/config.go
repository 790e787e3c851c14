package connector

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config represents database connection configuration.
type Config struct {
	Host           string            `json:"host" yaml:"host"`
	Port           int               `json:"port" yaml:"port"`
	Database       string            `json:"database" yaml:"database"`
	Username       string            `json:"username" yaml:"username"`
	Password       string            `json:"password" yaml:"password"`
	SSLMode        string            `json:"ssl_mode" yaml:"ssl_mode"`
	Params         map[string]string `json:"params" yaml:"params"`
	Pool           PoolConfig        `json:"pool" yaml:"pool"`
	ConnectTimeout time.Duration     `json:"connect_timeout" yaml:"connect_timeout"`
	QueryTimeout   time.Duration     `json:"query_timeout" yaml:"query_timeout"`
	Retry          *RetryConfig      `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// PoolConfig defines connection pool settings.
type PoolConfig struct {
	MaxOpen         int           `json:"max_open" yaml:"max_open"`
	MaxIdle         int           `json:"max_idle" yaml:"max_idle"`
	MaxLifetime     time.Duration `json:"max_lifetime" yaml:"max_lifetime"`
	MaxIdleTime     time.Duration `json:"max_idle_time" yaml:"max_idle_time"`
	HealthCheckFreq time.Duration `json:"health_check_freq" yaml:"health_check_freq"`
}

// RetryConfig defines connection retry behavior.
type RetryConfig struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay" yaml:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay" yaml:"max_delay"`
	Backoff    float64       `json:"backoff" yaml:"backoff"`
}

var validSSLModes = map[string]bool{
	"":            true,
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks the configuration without connecting.
func (c *Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, fmt.Errorf("host is required"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Port))
	}
	if !validSSLModes[c.SSLMode] {
		errs = append(errs, fmt.Errorf("invalid ssl_mode: %s", c.SSLMode))
	}
	if c.Pool.MaxOpen < 0 || c.Pool.MaxIdle < 0 {
		errs = append(errs, fmt.Errorf("pool sizes must not be negative"))
	}
	if c.Pool.MaxOpen > 0 && c.Pool.MaxIdle > c.Pool.MaxOpen {
		errs = append(errs, fmt.Errorf("pool max_idle %d exceeds max_open %d", c.Pool.MaxIdle, c.Pool.MaxOpen))
	}
	if r := c.Retry; r != nil {
		if r.MaxRetries < 1 {
			errs = append(errs, fmt.Errorf("retry max_retries must be at least 1"))
		}
		if r.Backoff != 0 && r.Backoff < 1 {
			errs = append(errs, fmt.Errorf("retry backoff must be >= 1, got %g", r.Backoff))
		}
	}
	return errors.Join(errs...)
}

// withDefaults fills unset pool settings.
func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.Pool.MaxOpen <= 0 {
		c.Pool.MaxOpen = 10
	}
	if c.Pool.MaxIdle > c.Pool.MaxOpen {
		c.Pool.MaxIdle = c.Pool.MaxOpen
	}
	if c.Pool.MaxLifetime == 0 {
		c.Pool.MaxLifetime = time.Hour
	}
	if c.Pool.MaxIdleTime == 0 {
		c.Pool.MaxIdleTime = 30 * time.Minute
	}
	return c
}

// DSN builds the PostgreSQL connection URL for c. Empty parameters are
// left out and the rest are sorted by key.
func (c *Config) DSN() string {
	cfg := c.withDefaults()
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
	}
	if cfg.Username != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			u.User = url.User(cfg.Username)
		}
	}
	if cfg.Database != "" {
		u.Path = "/" + cfg.Database
	}

	params := url.Values{}
	for k, v := range cfg.Params {
		if v != "" {
			params.Set(k, v)
		}
	}
	if cfg.SSLMode != "" {
		params.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = params.Encode()
	return u.String()
}
