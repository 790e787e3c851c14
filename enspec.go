// Package enspec wires configuration, include dispatch, the evaluator
// pipeline, SQL rendering and execution into one handle.
package enspec

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Konsultn-Engineering/enspec/config"
	"github.com/Konsultn-Engineering/enspec/connector"
	"github.com/Konsultn-Engineering/enspec/database"
	"github.com/Konsultn-Engineering/enspec/dialect"
	"github.com/Konsultn-Engineering/enspec/engine"
	"github.com/Konsultn-Engineering/enspec/evaluator"
	"github.com/Konsultn-Engineering/enspec/include"
	"github.com/Konsultn-Engineering/enspec/logging"
	"github.com/Konsultn-Engineering/enspec/visitor"
)

type DB struct {
	config     config.Config
	logger     *slog.Logger
	dispatcher include.Dispatcher
	pipeline   *evaluator.Pipeline
	renderer   *visitor.Renderer
	engine     *engine.Engine
	conn       *connector.Connection
}

type Option func(*DB)

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(db *DB) { db.logger = l }
}

// NewDispatcher returns the include dispatcher cfg selects.
func NewDispatcher(cfg config.Config, logger *slog.Logger) include.Dispatcher {
	if cfg.Dispatch == config.DispatchDirect {
		return include.Direct{}
	}
	return include.NewCache(
		include.WithLogger(logger),
		include.WithMissThreshold(cfg.Cache.MissThreshold),
	)
}

// New builds a handle over an existing database.
func New(cfg config.Config, db database.Database, opts ...Option) (*DB, error) {
	if db == nil {
		return nil, fmt.Errorf("enspec: nil database")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &DB{config: cfg}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	}

	d, err := dialect.ByName(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	h.renderer, err = visitor.NewRenderer(d, cfg.Cache.StatementCacheSize)
	if err != nil {
		return nil, err
	}
	h.dispatcher = NewDispatcher(cfg, h.logger)
	h.pipeline = evaluator.NewDefault(h.dispatcher, evaluator.WithLogger(h.logger))

	var engineOpts []engine.Option
	engineOpts = append(engineOpts, engine.WithLogger(h.logger), engine.WithPipeline(h.pipeline))
	if cfg.Database != nil && cfg.Database.QueryTimeout > 0 {
		engineOpts = append(engineOpts, engine.WithQueryTimeout(cfg.Database.QueryTimeout))
	}
	h.engine = engine.New(db, h.renderer, engineOpts...)

	h.logger.Debug("enspec ready", "dispatch", cfg.Dispatch, "dialect", d.Name())
	return h, nil
}

// Open connects to the database in cfg and builds a handle over it.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*DB, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("enspec: no database configured")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	probe := &DB{logger: logger}
	for _, opt := range opts {
		opt(probe)
	}

	conn, err := connector.Connect(ctx, *cfg.Database, connector.WithLogger(probe.logger))
	if err != nil {
		return nil, err
	}
	h, err := New(cfg, conn.Database(), append([]Option{WithLogger(probe.logger)}, opts...)...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	h.conn = conn
	return h, nil
}

func (db *DB) Config() config.Config { return db.config }
func (db *DB) Logger() *slog.Logger  { return db.logger }

// Dispatcher is the include dispatcher the configured mode selected.
// Typed includes use it through include.IncludeWith and friends.
func (db *DB) Dispatcher() include.Dispatcher { return db.dispatcher }

func (db *DB) Pipeline() *evaluator.Pipeline     { return db.pipeline }
func (db *DB) Renderer() *visitor.Renderer       { return db.renderer }
func (db *DB) Engine() *engine.Engine            { return db.engine }
func (db *DB) Connection() *connector.Connection { return db.conn }

// Session starts a unit of work. See engine.Session.
func (db *DB) Session() *engine.Session { return db.engine.NewSession() }

// Close closes the connection opened by Open. Handles built with New leave
// the database to the caller.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
