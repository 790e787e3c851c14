package query

import "reflect"

// Set is a typed view of a Query whose elements are T, always an entity
// pointer such as *Order.
type Set[T any] struct {
	q *Query
}

// From starts a typed query over T.
func From[T any]() Set[T] {
	return Set[T]{q: New(reflect.TypeFor[T]())}
}

// Wrap gives a typed view of q. It records an error on the view when q does
// not yield T.
func Wrap[T any](q *Query) Set[T] {
	if want := reflect.TypeFor[T](); q.ElementType() != want {
		c := q.clone()
		c.addError(&ElementTypeError{Want: want, Got: q.ElementType()})
		return Set[T]{q: c}
	}
	return Set[T]{q: q}
}

func (s Set[T]) ElementType() reflect.Type { return reflect.TypeFor[T]() }

func (s Set[T]) Query() *Query { return s.q }

func (s Set[T]) Err() error { return s.q.Err() }

func (s Set[T]) Where(column string, op Operator, value any) Set[T] {
	return Set[T]{q: s.q.Where(column, op, value)}
}

func (s Set[T]) WhereEq(column string, value any) Set[T] {
	return Set[T]{q: s.q.WhereEq(column, value)}
}

func (s Set[T]) WhereIn(column string, values any) Set[T] {
	return Set[T]{q: s.q.WhereIn(column, values)}
}

func (s Set[T]) WhereIsNull(column string) Set[T] {
	return Set[T]{q: s.q.WhereIsNull(column)}
}

func (s Set[T]) OrderBy(column string) Set[T] {
	return Set[T]{q: s.q.OrderBy(column, false)}
}

func (s Set[T]) OrderByDesc(column string) Set[T] {
	return Set[T]{q: s.q.OrderBy(column, true)}
}

func (s Set[T]) ThenBy(column string) Set[T] {
	return Set[T]{q: s.q.ThenBy(column, false)}
}

func (s Set[T]) Skip(n int) Set[T] { return Set[T]{q: s.q.Skip(n)} }

func (s Set[T]) Take(n int) Set[T] { return Set[T]{q: s.q.Take(n)} }

func (s Set[T]) AsNoTracking() Set[T] {
	return Set[T]{q: s.q.WithTracking(NoTracking)}
}

func (s Set[T]) AsNoTrackingWithIdentityResolution() Set[T] {
	return Set[T]{q: s.q.WithTracking(NoTrackingWithIdentityResolution)}
}

// IncludableSet is a Set whose last operation loaded a relation of field
// type P, so a further relation can be chained off P.
type IncludableSet[T, P any] struct {
	Set[T]
}

// AsIncludable gives a typed view of q with an open include chain ending
// at P.
func AsIncludable[T, P any](q *Query) IncludableSet[T, P] {
	s := Wrap[T](q)
	if want := reflect.TypeFor[P](); s.q.Tail() != want {
		c := s.q.clone()
		c.addError(&ElementTypeError{Want: want, Got: s.q.Tail()})
		s = Set[T]{q: c}
	}
	return IncludableSet[T, P]{Set: s}
}

// ElementTypeError reports a typed view over a query of a different type.
type ElementTypeError struct {
	Want reflect.Type
	Got  reflect.Type
}

func (e *ElementTypeError) Error() string {
	return "query yields " + typeString(e.Got) + ", not " + typeString(e.Want)
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<none>"
	}
	return t.String()
}
