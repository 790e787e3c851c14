package evaluator

import (
	"fmt"
	"log/slog"

	"github.com/Konsultn-Engineering/enspec/include"
	"github.com/Konsultn-Engineering/enspec/query"
	"github.com/Konsultn-Engineering/enspec/specification"
)

// Pipeline runs a fixed, ordered list of evaluators. It holds no state
// beyond its configuration and is safe for concurrent use.
type Pipeline struct {
	evaluators []Evaluator
	logger     *slog.Logger
}

type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New builds a pipeline that applies evaluators in the given order.
func New(evaluators []Evaluator, opts ...Option) *Pipeline {
	p := &Pipeline{evaluators: append([]Evaluator(nil), evaluators...)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// NewDefault builds the standard pipeline: where, include, order,
// pagination, tracking. Includes resolve through d, or the shared
// include.Default cache when d is nil.
func NewDefault(d include.Dispatcher, opts ...Option) *Pipeline {
	return New([]Evaluator{
		Where{},
		NewInclude(d),
		Order{},
		Pagination{},
		Tracking{},
	}, opts...)
}

// Names lists the evaluators in application order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.evaluators))
	for i, e := range p.evaluators {
		names[i] = e.Name()
	}
	return names
}

// Apply runs every evaluator. The first failure aborts the run and no
// partial query is returned.
func (p *Pipeline) Apply(q query.Queryable, s *specification.Specification) (query.Queryable, error) {
	return p.run(q, s, false)
}

// ApplyCriteria runs only the criteria evaluators, for counting rows the
// specification matches regardless of paging.
func (p *Pipeline) ApplyCriteria(q query.Queryable, s *specification.Specification) (query.Queryable, error) {
	return p.run(q, s, true)
}

func (p *Pipeline) run(q query.Queryable, s *specification.Specification, criteriaOnly bool) (query.Queryable, error) {
	if s == nil {
		return nil, fmt.Errorf("nil specification")
	}
	if err := q.Query().Err(); err != nil {
		return nil, err
	}
	if s.ElementType() != q.ElementType() {
		return nil, &query.ElementTypeError{Want: q.ElementType(), Got: s.ElementType()}
	}

	for _, e := range p.evaluators {
		if criteriaOnly && !e.IsCriteriaEvaluator() {
			continue
		}
		next, err := e.Evaluate(q, s)
		if err != nil {
			p.logger.Debug("specification evaluation failed",
				"evaluator", e.Name(),
				"element", q.ElementType().String(),
				"error", err,
			)
			return nil, fmt.Errorf("%s evaluator: %w", e.Name(), err)
		}
		q = next
	}
	return q, nil
}

// WithSpecification applies s to a typed set.
func WithSpecification[T any](p *Pipeline, set query.Set[T], s *specification.Specification) (query.Set[T], error) {
	q, err := p.Apply(set, s)
	if err != nil {
		return query.Set[T]{}, err
	}
	out := query.Wrap[T](q.Query())
	return out, out.Err()
}
