// Package include binds eager-load steps to the concrete entity types they
// navigate and caches the bound operations by type tuple.
package include

import (
	"reflect"
	"strings"
)

// Shape is one of the statically known include operations a step can be
// bound to.
type Shape uint8

const (
	// ShapeInclude opens a chain from the root entity.
	ShapeInclude Shape = iota + 1
	// ShapeThenIncludeReference continues a chain after a to-one relation.
	ShapeThenIncludeReference
	// ShapeThenIncludeCollection continues a chain after a to-many relation;
	// the next relation is navigated from the collection's element.
	ShapeThenIncludeCollection
)

func (s Shape) String() string {
	switch s {
	case ShapeInclude:
		return "Include"
	case ShapeThenIncludeReference:
		return "ThenInclude(reference)"
	case ShapeThenIncludeCollection:
		return "ThenInclude(collection)"
	default:
		return "unknown"
	}
}

// Step is one unit of eager-load work.
//
//	Owner    the root entity type of the query, e.g. *Order
//	Target   the field type being loaded, *E or []*E
//	Previous the field type loaded by the preceding step of the chain,
//	         nil when the step opens a chain
//	Selector a field-address function: func(From) *Target
//
// From is Owner for a first step, Previous for a continuation after a
// to-one relation, and the element of Previous after a to-many relation.
type Step struct {
	Owner    reflect.Type
	Target   reflect.Type
	Previous reflect.Type
	Selector any
}

// Key returns the dispatch key of the step.
func (s Step) Key() Key {
	return Key{Owner: s.Owner, Target: s.Target, Previous: s.Previous}
}

// IsContinuation reports whether the step extends an existing chain.
func (s Step) IsContinuation() bool { return s.Previous != nil }

func (s Step) String() string { return s.Key().String() }

// Key identifies the bound operation a step needs. reflect.Type values are
// comparable by identity, so Key is usable as a map key as is.
type Key struct {
	Owner    reflect.Type
	Target   reflect.Type
	Previous reflect.Type
}

// Shape returns the operation the key binds to.
func (k Key) Shape() Shape {
	switch {
	case k.Previous == nil:
		return ShapeInclude
	case k.Previous.Kind() == reflect.Slice:
		return ShapeThenIncludeCollection
	default:
		return ShapeThenIncludeReference
	}
}

// From returns the entity pointer type the step navigates from.
func (k Key) From() reflect.Type {
	switch k.Shape() {
	case ShapeInclude:
		return k.Owner
	case ShapeThenIncludeCollection:
		return k.Previous.Elem()
	default:
		return k.Previous
	}
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(typeName(k.Owner))
	if k.Previous != nil {
		b.WriteString(" ~ ")
		b.WriteString(typeName(k.Previous))
	}
	b.WriteString(" -> ")
	b.WriteString(typeName(k.Target))
	return b.String()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
