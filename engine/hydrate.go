package engine

import (
	"fmt"
	"reflect"

	"github.com/Konsultn-Engineering/enspec/builder"
	"github.com/Konsultn-Engineering/enspec/query"
	"github.com/Konsultn-Engineering/enspec/schema"
)

// identityKey identifies an entity row across queries.
type identityKey struct {
	typ reflect.Type
	pk  any
}

// instanceKey identifies an entity within one result. Untracked related
// entities are scoped to the instance that loaded them, so the same row
// reached from two parents yields two objects.
type instanceKey struct {
	identityKey
	parent any
	node   int
}

type link struct {
	parent any
	node   int
	child  any
}

// hydrator turns joined rows into entity graphs. Rows of one root are not
// required to be adjacent.
type hydrator struct {
	tracking query.Tracking
	session  *Session

	proj     *builder.Projection
	pkPos    []int
	children [][]int
	current  []reflect.Value

	instances map[instanceKey]reflect.Value
	links     map[link]struct{}
	rootSeen  map[any]struct{}
	roots     []reflect.Value
}

func newHydrator(s *Session, tracking query.Tracking) *hydrator {
	return &hydrator{
		tracking:  tracking,
		session:   s,
		instances: make(map[instanceKey]reflect.Value),
		links:     make(map[link]struct{}),
		rootSeen:  make(map[any]struct{}),
	}
}

func (h *hydrator) bind(p *builder.Projection) {
	h.proj = p
	h.pkPos = make([]int, len(p.Nodes))
	h.children = make([][]int, len(p.Nodes))
	h.current = make([]reflect.Value, len(p.Nodes))
	for i, n := range p.Nodes {
		h.pkPos[i] = primaryKeyPos(n.Meta)
		h.children[i] = p.Children(i)
	}
}

func primaryKeyPos(m *schema.EntityMeta) int {
	for i, f := range m.Fields {
		if f == m.PrimaryKey {
			return i
		}
	}
	return -1
}

func (h *hydrator) row(vals []any) error {
	for i, n := range h.proj.Nodes {
		h.current[i] = reflect.Value{}

		var parent reflect.Value
		if n.Parent >= 0 {
			parent = h.current[n.Parent]
			if !parent.IsValid() {
				continue
			}
		}

		obj, err := h.instance(i, n, parent, vals)
		if err != nil {
			return err
		}
		if !obj.IsValid() {
			continue
		}
		h.current[i] = obj

		if i == 0 {
			if _, seen := h.rootSeen[obj.Interface()]; !seen {
				h.rootSeen[obj.Interface()] = struct{}{}
				h.roots = append(h.roots, obj)
			}
			continue
		}
		h.attach(parent, i, n.Relation, obj)
	}
	return nil
}

// instance returns the entity for node i in this row, materializing it on
// first sight. It returns the zero Value when a joined node matched no row.
func (h *hydrator) instance(i int, n *builder.EntityNode, parent reflect.Value, vals []any) (reflect.Value, error) {
	if h.pkPos[i] < 0 {
		// Without a key nothing can be deduplicated.
		return h.materialize(i, n, vals)
	}
	pk, ok := identityValue(vals[n.Offset+h.pkPos[i]])
	if !ok {
		if i == 0 {
			return h.materialize(i, n, vals)
		}
		return reflect.Value{}, nil
	}

	key := instanceKey{identityKey: identityKey{typ: n.Meta.Type, pk: pk}}
	if h.tracking == query.NoTracking && i > 0 {
		key.parent = parent.Interface()
		key.node = i
	}
	if obj, ok := h.instances[key]; ok {
		return obj, nil
	}

	if h.tracking == query.TrackAll {
		if obj, ok := h.session.lookup(key.identityKey); ok {
			h.instances[key] = obj
			h.prepare(i, obj)
			return obj, nil
		}
	}

	obj, err := h.materialize(i, n, vals)
	if err != nil {
		return reflect.Value{}, err
	}
	if h.tracking == query.TrackAll {
		if tracked := h.session.track(key.identityKey, obj); tracked.Pointer() != obj.Pointer() {
			obj = tracked
			h.prepare(i, obj)
		}
	}
	h.instances[key] = obj
	return obj, nil
}

func (h *hydrator) materialize(i int, n *builder.EntityNode, vals []any) (reflect.Value, error) {
	obj := reflect.New(n.Meta.Type)
	elem := obj.Elem()
	for k, f := range n.Meta.Fields {
		if err := assign(elem.FieldByIndex(f.Index), vals[n.Offset+k]); err != nil {
			return reflect.Value{}, fmt.Errorf("%s.%s: %w", n.Meta.Name, f.Name, err)
		}
	}
	h.prepare(i, obj)
	return obj, nil
}

// prepare readies the included collections of obj for this result: a nil
// collection becomes empty and existing members are recorded so they are
// not appended twice.
func (h *hydrator) prepare(i int, obj reflect.Value) {
	parent := obj.Interface()
	for _, c := range h.children[i] {
		rel := h.proj.Nodes[c].Relation
		if rel.Cardinality != schema.ToMany {
			continue
		}
		field := obj.Elem().FieldByIndex(rel.Index)
		if field.IsNil() {
			field.Set(reflect.MakeSlice(rel.FieldType, 0, 0))
			continue
		}
		for j := 0; j < field.Len(); j++ {
			h.links[link{parent: parent, node: c, child: field.Index(j).Interface()}] = struct{}{}
		}
	}
}

func (h *hydrator) attach(parent reflect.Value, node int, rel *schema.Relation, child reflect.Value) {
	field := parent.Elem().FieldByIndex(rel.Index)
	if rel.Cardinality == schema.ToOne {
		field.Set(child)
		return
	}
	l := link{parent: parent.Interface(), node: node, child: child.Interface()}
	if _, ok := h.links[l]; ok {
		return
	}
	h.links[l] = struct{}{}
	field.Set(reflect.Append(field, child))
}
