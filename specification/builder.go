package specification

import (
	"reflect"

	"github.com/Konsultn-Engineering/enspec/include"
	"github.com/Konsultn-Engineering/enspec/query"
)

// Builder authors a Specification for entity pointer type T.
//
//	spec := specification.New[*Order]().
//		WhereEq("Status", "open").
//		OrderByDesc("ID").
//		Take(20).
//		Build()
//
// A Builder is not safe for concurrent use; the Specification it builds is.
type Builder[T any] struct {
	spec *Specification
}

func New[T any]() *Builder[T] {
	return &Builder[T]{spec: &Specification{root: reflect.TypeFor[T]()}}
}

func (b *Builder[T]) Where(column string, op query.Operator, value any) *Builder[T] {
	b.spec.criteria = append(b.spec.criteria, Criterion{Column: column, Op: op, Value: value})
	return b
}

func (b *Builder[T]) WhereEq(column string, value any) *Builder[T] {
	return b.Where(column, query.OpEqual, value)
}

func (b *Builder[T]) WhereIn(column string, values any) *Builder[T] {
	return b.Where(column, query.OpIn, values)
}

func (b *Builder[T]) WhereIsNull(column string) *Builder[T] {
	return b.Where(column, query.OpIsNull, nil)
}

// OrderBy adds an ascending sort term. Terms apply in the order added.
func (b *Builder[T]) OrderBy(column string) *Builder[T] {
	b.spec.orders = append(b.spec.orders, Order{Column: column})
	return b
}

func (b *Builder[T]) OrderByDesc(column string) *Builder[T] {
	b.spec.orders = append(b.spec.orders, Order{Column: column, Desc: true})
	return b
}

func (b *Builder[T]) Skip(n int) *Builder[T] {
	b.spec.skip, b.spec.hasSkip = n, true
	return b
}

func (b *Builder[T]) Take(n int) *Builder[T] {
	b.spec.take, b.spec.hasTake = n, true
	return b
}

// Paginate is Skip((page-1)*size).Take(size) for 1-based pages.
func (b *Builder[T]) Paginate(page, size int) *Builder[T] {
	if page < 1 {
		page = 1
	}
	return b.Skip((page - 1) * size).Take(size)
}

func (b *Builder[T]) AsTracking() *Builder[T] {
	return b.withTracking(query.TrackAll)
}

func (b *Builder[T]) AsNoTracking() *Builder[T] {
	return b.withTracking(query.NoTracking)
}

func (b *Builder[T]) AsNoTrackingWithIdentityResolution() *Builder[T] {
	return b.withTracking(query.NoTrackingWithIdentityResolution)
}

func (b *Builder[T]) withTracking(t query.Tracking) *Builder[T] {
	b.spec.tracking, b.spec.hasTracking = t, true
	return b
}

// AddInclude appends a raw include step. The typed Include, ThenInclude and
// ThenIncludeMany functions are the usual way to add steps.
func (b *Builder[T]) AddInclude(step include.Step) *Builder[T] {
	b.spec.includes = append(b.spec.includes, step)
	return b
}

// Build returns a snapshot of the specification. Later changes to the
// builder do not affect it.
func (b *Builder[T]) Build() *Specification {
	return b.spec.clone()
}

// IncludeBuilder is a Builder whose last include step loaded field type P.
type IncludeBuilder[T, P any] struct {
	*Builder[T]
}

// Include starts an include chain with the relation sel addresses:
//
//	b := specification.New[*Order]()
//	specification.ThenInclude(
//		specification.Include(b, func(o *Order) **Customer { return &o.Customer }),
//		func(c *Customer) **Address { return &c.Address },
//	)
func Include[T, P any](b *Builder[T], sel func(T) *P) *IncludeBuilder[T, P] {
	b.AddInclude(include.Step{
		Owner:    reflect.TypeFor[T](),
		Target:   reflect.TypeFor[P](),
		Selector: sel,
	})
	return &IncludeBuilder[T, P]{Builder: b}
}

// ThenInclude continues the chain after a to-one relation.
func ThenInclude[T, P, N any](b *IncludeBuilder[T, P], sel func(P) *N) *IncludeBuilder[T, N] {
	b.AddInclude(include.Step{
		Owner:    reflect.TypeFor[T](),
		Target:   reflect.TypeFor[N](),
		Previous: reflect.TypeFor[P](),
		Selector: sel,
	})
	return &IncludeBuilder[T, N]{Builder: b.Builder}
}

// ThenIncludeMany continues the chain after a to-many relation, navigating
// from each element.
func ThenIncludeMany[T, E, N any](b *IncludeBuilder[T, []E], sel func(E) *N) *IncludeBuilder[T, N] {
	b.AddInclude(include.Step{
		Owner:    reflect.TypeFor[T](),
		Target:   reflect.TypeFor[N](),
		Previous: reflect.TypeFor[[]E](),
		Selector: sel,
	})
	return &IncludeBuilder[T, N]{Builder: b.Builder}
}
