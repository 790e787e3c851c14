// Package bench measures the cost of applying include chains with and
// without the dispatch cache.
package bench

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/Konsultn-Engineering/enspec/evaluator"
	"github.com/Konsultn-Engineering/enspec/include"
	"github.com/Konsultn-Engineering/enspec/query"
	"github.com/Konsultn-Engineering/enspec/specification"
)

// Case is one measured operation.
type Case struct {
	Name string
	Op   func() error
}

// Suite groups cases that build the same query different ways.
type Suite struct {
	Name  string
	Cases []Case
}

// Env holds the dispatchers and pipelines a suite compares.
type Env struct {
	Cache          *include.Cache
	Direct         include.Direct
	CachedPipeline *evaluator.Pipeline
	DirectPipeline *evaluator.Pipeline
}

func NewEnv(opts ...include.CacheOption) *Env {
	c := include.NewCache(opts...)
	return &Env{
		Cache:          c,
		CachedPipeline: evaluator.NewDefault(c),
		DirectPipeline: evaluator.NewDefault(include.Direct{}),
	}
}

// Suites returns every suite, sorted by name.
func (e *Env) Suites() []Suite {
	suites := []Suite{e.includeSuite(), e.specIncludeSuite()}
	slices.SortFunc(suites, func(a, b Suite) int { return strings.Compare(a.Name, b.Name) })
	return suites
}

// Names lists the suite names.
func (e *Env) Names() []string {
	var names []string
	for _, s := range e.Suites() {
		names = append(names, s.Name)
	}
	return names
}

// Lookup finds a suite case-insensitively; a trailing "benchmark" is
// ignored, so "IncludeBenchmark" names the include suite.
func (e *Env) Lookup(name string) (Suite, error) {
	want := strings.TrimSuffix(strings.ToLower(name), "benchmark")
	for _, s := range e.Suites() {
		if s.Name == want {
			return s, nil
		}
	}
	return Suite{}, fmt.Errorf("benchmark %q not found", name)
}

var (
	tEntity       = reflect.TypeFor[*Entity]()
	tEntity2      = reflect.TypeFor[*Entity2]()
	tEntity3      = reflect.TypeFor[*Entity3]()
	tEntity4      = reflect.TypeFor[*Entity4]()
	tEntity5Slice = reflect.TypeFor[[]*Entity5]()
	tEntity6      = reflect.TypeFor[*Entity6]()
)

// entitySteps is the two-chain include tree over Entity as raw steps.
var entitySteps = []include.Step{
	{Owner: tEntity, Target: tEntity2, Selector: entityProp1},
	{Owner: tEntity, Target: tEntity3, Previous: tEntity2, Selector: entity2Prop1},
	{Owner: tEntity, Target: tEntity4, Previous: tEntity3, Selector: entity3Prop1},
	{Owner: tEntity, Target: tEntity5Slice, Previous: tEntity4, Selector: entity4Prop1},
	{Owner: tEntity, Target: tEntity6, Previous: tEntity5Slice, Selector: entity5Prop1},
	{Owner: tEntity, Target: tEntity4, Selector: entityProp2},
	{Owner: tEntity, Target: tEntity5Slice, Previous: tEntity4, Selector: entity4Prop1},
	{Owner: tEntity, Target: tEntity6, Previous: tEntity5Slice, Selector: entity5Prop1},
}

// TypedEntityQuery builds the Entity include tree with the typed operations.
func TypedEntityQuery() query.Set[*Entity] {
	s := include.Include(query.From[*Entity](), entityProp1)
	s2 := include.ThenInclude(s, entity2Prop1)
	s3 := include.ThenInclude(s2, entity3Prop1)
	s4 := include.ThenInclude(s3, entity4Prop1)
	s5 := include.ThenIncludeMany(s4, entity5Prop1)
	s6 := include.Include(s5.Set, entityProp2)
	s7 := include.ThenInclude(s6, entity4Prop1)
	return include.ThenIncludeMany(s7, entity5Prop1).Set
}

// EntitySpec builds the Entity include tree as a specification.
func EntitySpec() *specification.Specification {
	b := specification.New[*Entity]()
	first := specification.ThenInclude(
		specification.ThenInclude(
			specification.ThenInclude(specification.Include(b, entityProp1), entity2Prop1),
			entity3Prop1),
		entity4Prop1)
	specification.ThenIncludeMany(first, entity5Prop1)
	specification.ThenIncludeMany(specification.ThenInclude(specification.Include(b, entityProp2), entity4Prop1), entity5Prop1)
	return b.Build()
}

// StoreSpec includes every store's products and their custom fields.
func StoreSpec() *specification.Specification {
	b := specification.New[*Store]()
	specification.ThenIncludeMany(specification.Include(b, storeProducts), productCustomFields)
	return b.Build()
}

func applySteps(d include.Dispatcher, steps []include.Step) (query.Queryable, error) {
	var q query.Queryable = query.From[*Entity]()
	for _, step := range steps {
		next, err := include.Apply(d, q, step)
		if err != nil {
			return nil, err
		}
		q = next
	}
	return q, nil
}

func (e *Env) includeSuite() Suite {
	return Suite{Name: "include", Cases: []Case{
		{Name: "TypedInclude", Op: func() error {
			return TypedEntityQuery().Err()
		}},
		{Name: "StepsInclude", Op: func() error {
			_, err := applySteps(e.Direct, entitySteps)
			return err
		}},
		{Name: "StepsIncludeCached", Op: func() error {
			_, err := applySteps(e.Cache, entitySteps)
			return err
		}},
		{Name: "SpecInclude", Op: func() error {
			_, err := e.DirectPipeline.Apply(query.From[*Entity](), EntitySpec())
			return err
		}},
		{Name: "SpecIncludeCached", Op: func() error {
			_, err := e.CachedPipeline.Apply(query.From[*Entity](), EntitySpec())
			return err
		}},
	}}
}

func (e *Env) specIncludeSuite() Suite {
	direct, cached := StoreSpec(), StoreSpec()
	return Suite{Name: "specinclude", Cases: []Case{
		{Name: "TypedIncludeExpression", Op: func() error {
			s := include.Include(query.From[*Store](), storeProducts)
			return include.ThenIncludeMany(s, productCustomFields).Err()
		}},
		{Name: "SpecIncludeExpression", Op: func() error {
			_, err := e.DirectPipeline.Apply(query.From[*Store](), direct)
			return err
		}},
		{Name: "SpecIncludeExpressionCached", Op: func() error {
			_, err := e.CachedPipeline.Apply(query.From[*Store](), cached)
			return err
		}},
	}}
}
