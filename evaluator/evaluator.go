// Package evaluator applies a specification to a query through an ordered
// list of independent evaluators.
package evaluator

import (
	"github.com/Konsultn-Engineering/enspec/include"
	"github.com/Konsultn-Engineering/enspec/query"
	"github.com/Konsultn-Engineering/enspec/specification"
)

// Evaluator is one transformation step. Evaluators only read the
// specification; with nothing to apply they return q unchanged.
type Evaluator interface {
	Name() string
	// IsCriteriaEvaluator reports whether the evaluator narrows the row set,
	// so it must also apply when counting.
	IsCriteriaEvaluator() bool
	Evaluate(q query.Queryable, s *specification.Specification) (query.Queryable, error)
}

// Where applies the specification's criteria.
type Where struct{}

func (Where) Name() string { return "where" }

func (Where) IsCriteriaEvaluator() bool { return true }

func (Where) Evaluate(q query.Queryable, s *specification.Specification) (query.Queryable, error) {
	criteria := s.Criteria()
	if len(criteria) == 0 {
		return q, nil
	}
	plan := q.Query()
	for _, c := range criteria {
		plan = plan.Where(c.Column, c.Op, c.Value)
	}
	if err := plan.Err(); err != nil {
		return nil, err
	}
	return plan, nil
}

// Include applies the include steps in declaration order, resolving each
// through the Dispatcher.
type Include struct {
	Dispatcher include.Dispatcher
}

// NewInclude returns the include evaluator. A nil dispatcher uses the shared
// include.Default cache.
func NewInclude(d include.Dispatcher) Include {
	if d == nil {
		d = include.Default()
	}
	return Include{Dispatcher: d}
}

func (Include) Name() string { return "include" }

func (Include) IsCriteriaEvaluator() bool { return false }

func (e Include) Evaluate(q query.Queryable, s *specification.Specification) (query.Queryable, error) {
	steps := s.IncludeSteps()
	if len(steps) == 0 {
		return q, nil
	}
	d := e.Dispatcher
	if d == nil {
		d = include.Default()
	}

	plan := q.Query()
	for i, step := range steps {
		if step.IsContinuation() && plan.Tail() != step.Previous {
			err := &include.ChainOrderError{Step: step, Index: i}
			if plan.Tail() != nil {
				err.Tail = plan.Tail().String()
			}
			return nil, err
		}
		next, err := include.Apply(d, plan, step)
		if err != nil {
			return nil, err
		}
		plan = next
	}
	return plan, nil
}

// Order applies the sort terms: the first replaces any ordering on the
// query, the rest follow it.
type Order struct{}

func (Order) Name() string { return "order" }

func (Order) IsCriteriaEvaluator() bool { return false }

func (Order) Evaluate(q query.Queryable, s *specification.Specification) (query.Queryable, error) {
	orders := s.Orders()
	if len(orders) == 0 {
		return q, nil
	}
	plan := q.Query().OrderBy(orders[0].Column, orders[0].Desc)
	for _, o := range orders[1:] {
		plan = plan.ThenBy(o.Column, o.Desc)
	}
	if err := plan.Err(); err != nil {
		return nil, err
	}
	return plan, nil
}

// Pagination applies Skip and Take.
type Pagination struct{}

func (Pagination) Name() string { return "pagination" }

func (Pagination) IsCriteriaEvaluator() bool { return false }

func (Pagination) Evaluate(q query.Queryable, s *specification.Specification) (query.Queryable, error) {
	skip, hasSkip := s.Skip()
	take, hasTake := s.Take()
	if !hasSkip && !hasTake {
		return q, nil
	}
	plan := q.Query()
	if hasSkip {
		plan = plan.Skip(skip)
	}
	if hasTake {
		plan = plan.Take(take)
	}
	if err := plan.Err(); err != nil {
		return nil, err
	}
	return plan, nil
}

// Tracking applies the tracking mode when the specification sets one.
type Tracking struct{}

func (Tracking) Name() string { return "tracking" }

func (Tracking) IsCriteriaEvaluator() bool { return false }

func (Tracking) Evaluate(q query.Queryable, s *specification.Specification) (query.Queryable, error) {
	mode, ok := s.Tracking()
	if !ok {
		return q, nil
	}
	return q.Query().WithTracking(mode), nil
}
