package schema

import (
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/Konsultn-Engineering/enspec/cache"
)

var entityCache = cache.NewReadMap[reflect.Type, *EntityMeta]()

// scalarStructs are struct types stored in a single column rather than
// navigated as relations.
var scalarStructs = cache.NewReadMap[reflect.Type, struct{}]()

func init() {
	for _, t := range []reflect.Type{
		reflect.TypeFor[time.Time](),
		reflect.TypeFor[sql.NullString](),
		reflect.TypeFor[sql.NullInt64](),
		reflect.TypeFor[sql.NullInt32](),
		reflect.TypeFor[sql.NullFloat64](),
		reflect.TypeFor[sql.NullBool](),
		reflect.TypeFor[sql.NullTime](),
		reflect.TypeFor[uuid.NullUUID](),
	} {
		scalarStructs.Store(t, struct{}{})
	}
}

// RegisterScalar marks a struct type as a column value so fields of type T,
// *T or []T are never treated as relations. Register before the first
// Introspect of any entity using the type.
func RegisterScalar(t reflect.Type) {
	scalarStructs.Store(indirect(t), struct{}{})
}

func isScalar(t reflect.Type) bool {
	_, ok := scalarStructs.Load(t)
	return ok
}

// Introspect returns the metadata of a struct type, building it on first use.
// Pointer types are dereferenced.
func Introspect(t reflect.Type) (*EntityMeta, error) {
	if t == nil {
		return nil, fmt.Errorf("invalid model type: nil")
	}
	t = indirect(t)
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("invalid model type: %s", t.Kind())
	}
	return entityCache.LoadOrCompute(t, buildMeta)
}

// IsEntityPointer reports whether t is a pointer to a non-scalar struct,
// the only form an entity takes in queries and relations.
func IsEntityPointer(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Pointer &&
		t.Elem().Kind() == reflect.Struct && !isScalar(t.Elem())
}

// relationShape classifies a field type as a navigation: *E is to-one and
// []*E is to-many, for any non-scalar struct E.
func relationShape(t reflect.Type) (Cardinality, reflect.Type, bool) {
	switch {
	case IsEntityPointer(t):
		return ToOne, t.Elem(), true
	case t.Kind() == reflect.Slice && IsEntityPointer(t.Elem()):
		return ToMany, t.Elem().Elem(), true
	}
	return 0, nil, false
}

func buildMeta(t reflect.Type) (*EntityMeta, error) {
	meta := &EntityMeta{
		Type:      t,
		Name:      t.Name(),
		FieldMap:  make(map[string]*FieldMeta, t.NumField()),
		ColumnMap: make(map[string]*FieldMeta, t.NumField()),
	}

	if tn, ok := reflect.New(t).Interface().(TableNamer); ok {
		meta.TableName = tn.TableName()
	} else {
		meta.TableName = tableName(t.Name())
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}

		tag, err := ParseTag(f.Name, f.Tag)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name(), err)
		}
		if tag.Skip {
			continue
		}

		if card, target, ok := relationShape(f.Type); ok {
			rel := &Relation{
				Name:        f.Name,
				Owner:       t,
				FieldType:   f.Type,
				Target:      target,
				Cardinality: card,
				Index:       f.Index,
				Offset:      f.Offset,
				ForeignKey:  tag.ForeignKey,
			}
			if rel.ForeignKey == "" {
				if card == ToOne {
					rel.ForeignKey = foreignKeyName(f.Name)
				} else {
					rel.ForeignKey = foreignKeyName(t.Name())
				}
			}
			meta.Relations = append(meta.Relations, rel)
			continue
		}

		// Value structs that are not registered scalars have no column.
		if base := indirect(f.Type); base.Kind() == reflect.Struct && !isScalar(base) {
			continue
		}

		fm := &FieldMeta{
			Name:    f.Name,
			Column:  tag.ColumnName,
			Type:    f.Type,
			Index:   f.Index,
			Offset:  f.Offset,
			Primary: tag.Primary,
			Tag:     tag,
		}
		if _, dup := meta.ColumnMap[fm.Column]; dup {
			return nil, fmt.Errorf("%s: duplicate column %q", t.Name(), fm.Column)
		}
		meta.Fields = append(meta.Fields, fm)
		meta.FieldMap[fm.Name] = fm
		meta.ColumnMap[fm.Column] = fm
		if fm.Primary && meta.PrimaryKey == nil {
			meta.PrimaryKey = fm
		}
	}

	if meta.PrimaryKey == nil {
		if id, ok := meta.FieldMap["ID"]; ok {
			id.Primary = true
			meta.PrimaryKey = id
		}
	}
	return meta, nil
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
