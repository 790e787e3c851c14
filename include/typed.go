package include

import (
	"reflect"

	"github.com/Konsultn-Engineering/enspec/query"
)

// Include eager-loads the relation sel addresses, opening a new chain:
//
//	orders := include.Include(query.From[*Order](),
//		func(o *Order) **Customer { return &o.Customer })
//
// Failures are recorded on the returned set and reported by its Err.
// Include resolves through the shared Default cache; IncludeWith takes the
// dispatcher explicitly.
func Include[T, P any](s query.Set[T], sel func(T) *P) query.IncludableSet[T, P] {
	return IncludeWith(Default(), s, sel)
}

// IncludeWith is Include resolved through d.
func IncludeWith[T, P any](d Dispatcher, s query.Set[T], sel func(T) *P) query.IncludableSet[T, P] {
	step := Step{
		Owner:    reflect.TypeFor[T](),
		Target:   reflect.TypeFor[P](),
		Selector: sel,
	}
	return apply[T, P](d, s.Query(), step)
}

// ThenInclude continues a chain after a to-one relation.
func ThenInclude[T, P, N any](s query.IncludableSet[T, P], sel func(P) *N) query.IncludableSet[T, N] {
	return ThenIncludeWith(Default(), s, sel)
}

func ThenIncludeWith[T, P, N any](d Dispatcher, s query.IncludableSet[T, P], sel func(P) *N) query.IncludableSet[T, N] {
	step := Step{
		Owner:    reflect.TypeFor[T](),
		Target:   reflect.TypeFor[N](),
		Previous: reflect.TypeFor[P](),
		Selector: sel,
	}
	return apply[T, N](d, s.Query(), step)
}

// ThenIncludeMany continues a chain after a to-many relation; sel navigates
// from each element of the collection.
func ThenIncludeMany[T, E, N any](s query.IncludableSet[T, []E], sel func(E) *N) query.IncludableSet[T, N] {
	return ThenIncludeManyWith(Default(), s, sel)
}

func ThenIncludeManyWith[T, E, N any](d Dispatcher, s query.IncludableSet[T, []E], sel func(E) *N) query.IncludableSet[T, N] {
	step := Step{
		Owner:    reflect.TypeFor[T](),
		Target:   reflect.TypeFor[N](),
		Previous: reflect.TypeFor[[]E](),
		Selector: sel,
	}
	return apply[T, N](d, s.Query(), step)
}

func apply[T, P any](d Dispatcher, q *query.Query, step Step) query.IncludableSet[T, P] {
	if err := q.Err(); err != nil {
		return query.IncludableSet[T, P]{Set: query.Wrap[T](q)}
	}
	if d == nil {
		d = Default()
	}
	next, err := Apply(d, q, step)
	if err != nil {
		return query.IncludableSet[T, P]{Set: query.Wrap[T](q.WithError(err))}
	}
	return query.AsIncludable[T, P](next)
}
