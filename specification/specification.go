// Package specification holds the declarative description of a query:
// filters, eager-loaded relations, ordering, paging and tracking. It is a
// plain data holder; evaluator.Pipeline turns it into a query.
package specification

import (
	"reflect"

	"github.com/Konsultn-Engineering/enspec/include"
	"github.com/Konsultn-Engineering/enspec/query"
)

// Criterion is one filter. Column is a Go field name or a column name of
// the root entity.
type Criterion struct {
	Column string
	Op     query.Operator
	Value  any
}

// Order is one sort term; the first term is the primary ordering.
type Order struct {
	Column string
	Desc   bool
}

// Specification is immutable once built. Accessors return copies.
type Specification struct {
	root        reflect.Type
	criteria    []Criterion
	orders      []Order
	skip        int
	take        int
	hasSkip     bool
	hasTake     bool
	tracking    query.Tracking
	hasTracking bool
	includes    []include.Step
}

// ElementType is the entity pointer type the specification applies to.
func (s *Specification) ElementType() reflect.Type { return s.root }

func (s *Specification) Criteria() []Criterion {
	return append([]Criterion(nil), s.criteria...)
}

func (s *Specification) Orders() []Order {
	return append([]Order(nil), s.orders...)
}

func (s *Specification) Skip() (int, bool) { return s.skip, s.hasSkip }

func (s *Specification) Take() (int, bool) { return s.take, s.hasTake }

// Tracking returns the requested tracking mode and whether one was set.
func (s *Specification) Tracking() (query.Tracking, bool) { return s.tracking, s.hasTracking }

// IncludeSteps returns the include steps in declaration order. Chains are
// contiguous: a first step followed by its continuations.
func (s *Specification) IncludeSteps() []include.Step {
	return append([]include.Step(nil), s.includes...)
}

func (s *Specification) clone() *Specification {
	c := *s
	c.criteria = append([]Criterion(nil), s.criteria...)
	c.orders = append([]Order(nil), s.orders...)
	c.includes = append([]include.Step(nil), s.includes...)
	return &c
}
