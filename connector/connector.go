// Package connector opens PostgreSQL connection pools from configuration.
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/Konsultn-Engineering/enspec/database"
	"github.com/Konsultn-Engineering/enspec/dialect"
)

// Connection is an open pgx pool with the views the rest of the module
// needs.
type Connection struct {
	config  Config
	pool    *pgxpool.Pool
	dialect dialect.Dialect
}

type Option func(*options)

type options struct {
	logger *slog.Logger
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Connect validates cfg, opens a pool and pings it, retrying per cfg.Retry.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Connection, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("connector: %w", err)
	}
	cfg = cfg.withDefaults()

	poolCfg, err := PoolConfigFor(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	var pool *pgxpool.Pool
	err = retry(ctx, cfg.Retry, o.logger, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	o.logger.Info("database connected", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database,
		"max_conns", poolCfg.MaxConns)
	return &Connection{config: cfg, pool: pool, dialect: dialect.NewPostgresDialect()}, nil
}

// PoolConfigFor translates cfg into a pgxpool configuration.
func PoolConfigFor(cfg Config) (*pgxpool.Config, error) {
	cfg = cfg.withDefaults()
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Pool.MaxOpen)
	poolCfg.MinConns = int32(cfg.Pool.MaxIdle)
	poolCfg.MaxConnLifetime = cfg.Pool.MaxLifetime
	poolCfg.MaxConnIdleTime = cfg.Pool.MaxIdleTime
	if cfg.Pool.HealthCheckFreq > 0 {
		poolCfg.HealthCheckPeriod = cfg.Pool.HealthCheckFreq
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	return poolCfg, nil
}

// Database returns the pool as a database.Database.
func (c *Connection) Database() database.Database {
	return database.NewPgxDatabase(c.pool)
}

// DB returns a database/sql handle backed by the same pool.
func (c *Connection) DB() *sql.DB {
	return stdlib.OpenDBFromPool(c.pool)
}

func (c *Connection) Dialect() dialect.Dialect { return c.dialect }

func (c *Connection) Config() Config { return c.config }

func (c *Connection) Health(ctx context.Context) error {
	if c.pool == nil {
		return fmt.Errorf("not connected")
	}
	return c.pool.Ping(ctx)
}

// PoolStats is a point-in-time view of the connection pool.
type PoolStats struct {
	MaxOpen   int
	Open      int
	InUse     int
	Idle      int
	Acquires  int64
	WaitCount int64 // acquires that had to wait for a connection
	WaitTime  time.Duration
}

// Stats returns pool statistics; zero once closed.
func (c *Connection) Stats() PoolStats {
	if c.pool == nil {
		return PoolStats{}
	}
	s := c.pool.Stat()
	return PoolStats{
		MaxOpen:   int(s.MaxConns()),
		Open:      int(s.TotalConns()),
		InUse:     int(s.AcquiredConns()),
		Idle:      int(s.IdleConns()),
		Acquires:  s.AcquireCount(),
		WaitCount: s.EmptyAcquireCount(),
		WaitTime:  s.AcquireDuration(),
	}
}

func (c *Connection) Close() error {
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
	return nil
}
