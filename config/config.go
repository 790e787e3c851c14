// Package config loads the module's runtime configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Konsultn-Engineering/enspec/cache"
	"github.com/Konsultn-Engineering/enspec/connector"
	"github.com/Konsultn-Engineering/enspec/dialect"
	"github.com/Konsultn-Engineering/enspec/logging"
)

// DispatchMode selects how include steps are bound to operations.
type DispatchMode string

const (
	// DispatchCached builds each binding once per type tuple and reuses it.
	DispatchCached DispatchMode = "cached"
	// DispatchDirect rebuilds the binding for every step.
	DispatchDirect DispatchMode = "direct"
)

type Config struct {
	Dispatch DispatchMode      `json:"dispatch" yaml:"dispatch"`
	Dialect  string            `json:"dialect" yaml:"dialect"`
	Cache    CacheConfig       `json:"cache" yaml:"cache"`
	Log      LogConfig         `json:"log" yaml:"log"`
	Database *connector.Config `json:"database,omitempty" yaml:"database,omitempty"`
}

type CacheConfig struct {
	// MissThreshold is how many reads may miss the dispatch snapshot before
	// it is rebuilt.
	MissThreshold      int `json:"miss_threshold" yaml:"miss_threshold"`
	StatementCacheSize int `json:"statement_cache_size" yaml:"statement_cache_size"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

func Default() Config {
	return Config{
		Dispatch: DispatchCached,
		Dialect:  "postgres",
		Cache: CacheConfig{
			MissThreshold:      cache.DefaultMissThreshold,
			StatementCacheSize: cache.DefaultStatementCacheSize,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads and validates the YAML file at path. Keys missing from the
// file keep their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Dispatch {
	case DispatchCached, DispatchDirect:
	default:
		errs = append(errs, fmt.Errorf("invalid dispatch mode %q (want %q or %q)", c.Dispatch, DispatchCached, DispatchDirect))
	}
	if _, err := dialect.ByName(c.Dialect); err != nil {
		errs = append(errs, err)
	}
	if c.Cache.MissThreshold < 1 {
		errs = append(errs, fmt.Errorf("cache.miss_threshold must be at least 1, got %d", c.Cache.MissThreshold))
	}
	if c.Cache.StatementCacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache.statement_cache_size must not be negative"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Log.Format))
	}
	if c.Database != nil {
		if err := c.Database.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
