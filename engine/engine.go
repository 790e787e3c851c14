// Package engine executes query plans against a database and hydrates the
// results, including eager-loaded relations, into entity graphs.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Konsultn-Engineering/enspec/database"
	"github.com/Konsultn-Engineering/enspec/evaluator"
	"github.com/Konsultn-Engineering/enspec/query"
	"github.com/Konsultn-Engineering/enspec/visitor"
)

type Engine struct {
	db           database.Database
	renderer     *visitor.Renderer
	pipeline     *evaluator.Pipeline
	logger       *slog.Logger
	queryTimeout time.Duration
	ids          *queryIDs
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithPipeline sets the pipeline used by FindBySpec.
func WithPipeline(p *evaluator.Pipeline) Option {
	return func(e *Engine) { e.pipeline = p }
}

// WithQueryTimeout bounds each statement; zero means no bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(e *Engine) { e.queryTimeout = d }
}

func New(db database.Database, renderer *visitor.Renderer, opts ...Option) *Engine {
	e := &Engine{
		db:       db,
		renderer: renderer,
		logger:   slog.Default(),
		ids:      newQueryIDs(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pipeline == nil {
		e.pipeline = evaluator.NewDefault(nil, evaluator.WithLogger(e.logger))
	}
	return e
}

func (e *Engine) Renderer() *visitor.Renderer   { return e.renderer }
func (e *Engine) Pipeline() *evaluator.Pipeline { return e.pipeline }
func (e *Engine) DB() database.Database         { return e.db }

// NewSession starts a unit of work with its own identity map.
func (e *Engine) NewSession() *Session {
	return newSession(e)
}

// run renders q, executes it and feeds every row to h.
func (e *Engine) run(ctx context.Context, q query.Queryable, h *hydrator) error {
	stmt, err := e.renderer.Render(q)
	if err != nil {
		return fmt.Errorf("engine: render: %w", err)
	}
	h.bind(stmt.Projection)

	id := e.ids.next()
	log := e.logger.With("query_id", id)
	log.Debug("executing query", "sql", stmt.SQL, "args", len(stmt.Args), "fingerprint", stmt.Fingerprint)

	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		log.Error("query failed", "error", err)
		return fmt.Errorf("engine: query %s: %w", id, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("engine: query %s: columns: %w", id, err)
	}
	if len(cols) != stmt.Projection.Width {
		return fmt.Errorf("engine: query %s: got %d columns, want %d", id, len(cols), stmt.Projection.Width)
	}

	buf := getBuffers(stmt.Projection.Width)
	defer putBuffers(buf)

	n := 0
	for rows.Next() {
		if err := rows.Scan(buf.ptrs...); err != nil {
			return fmt.Errorf("engine: query %s: scan row %d: %w", id, n, err)
		}
		if err := h.row(buf.vals); err != nil {
			return fmt.Errorf("engine: query %s: row %d: %w", id, n, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("engine: query %s: %w", id, err)
	}

	log.Debug("query done", "rows", n, "roots", len(h.roots), "duration", time.Since(start))
	return nil
}
