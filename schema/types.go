package schema

import (
	"reflect"
)

// Cardinality tells whether a relation field holds one entity or many.
type Cardinality uint8

const (
	ToOne  Cardinality = iota + 1 // field of type *E
	ToMany                        // field of type []*E
)

func (c Cardinality) String() string {
	switch c {
	case ToOne:
		return "to-one"
	case ToMany:
		return "to-many"
	default:
		return "unknown"
	}
}

// EntityMeta is the reflected shape of an entity struct: its table, its
// column fields and its navigation (relation) fields.
type EntityMeta struct {
	Type       reflect.Type // struct type, never a pointer
	Name       string
	TableName  string
	Fields     []*FieldMeta
	FieldMap   map[string]*FieldMeta // Go field name -> FieldMeta
	ColumnMap  map[string]*FieldMeta // column name -> FieldMeta
	PrimaryKey *FieldMeta
	Relations  []*Relation
}

// FieldMeta describes a field stored in a column.
type FieldMeta struct {
	Name    string
	Column  string
	Type    reflect.Type
	Index   []int
	Offset  uintptr
	Primary bool
	Tag     *ParsedTag
}

// Relation describes a navigation field.
//
// For ToOne the foreign key column lives on the owner's table and references
// the target's primary key. For ToMany it lives on the target's table and
// references the owner's primary key.
type Relation struct {
	Name        string
	Owner       reflect.Type // struct type declaring the field
	FieldType   reflect.Type // *E or []*E
	Target      reflect.Type // E
	Cardinality Cardinality
	Index       []int
	Offset      uintptr
	ForeignKey  string
}

func (r *Relation) String() string {
	return r.Owner.Name() + "." + r.Name
}

// Columns returns column names in declaration order.
func (m *EntityMeta) Columns() []string {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = f.Column
	}
	return cols
}

// RelationsOfType returns the relations whose field type is exactly t.
func (m *EntityMeta) RelationsOfType(t reflect.Type) []*Relation {
	var out []*Relation
	for _, r := range m.Relations {
		if r.FieldType == t {
			out = append(out, r)
		}
	}
	return out
}

// Relation looks a relation up by Go field name.
func (m *EntityMeta) Relation(name string) (*Relation, bool) {
	for _, r := range m.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// TableNamer lets an entity override its derived table name.
type TableNamer interface {
	TableName() string
}
