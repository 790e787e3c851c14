package include

import (
	"fmt"
	"reflect"

	"github.com/Konsultn-Engineering/enspec/query"
	"github.com/Konsultn-Engineering/enspec/schema"
)

// Binding is an include operation bound to the concrete types of one Key.
// It is immutable and safe for concurrent use.
type Binding struct {
	key          Key
	shape        Shape
	from         *schema.EntityMeta
	selectorType reflect.Type
	// candidates are the relations of from whose field type is the target,
	// keyed by field offset.
	candidates map[uintptr]*schema.Relation
	// proto is a zero from-struct the selector is called on to learn which
	// field it addresses. Selectors only take an address, they never write.
	proto reflect.Value
}

func (b *Binding) Key() Key { return b.key }

func (b *Binding) Shape() Shape { return b.shape }

// SelectorType is the function type a selector must have, func(From) *Target.
func (b *Binding) SelectorType() reflect.Type { return b.selectorType }

// Build binds key to its include operation. It fails with a
// *ConfigurationError when the types cannot be bound, for example when the
// navigated-from entity has no relation of the target type.
func Build(key Key) (*Binding, error) {
	selectorType, err := selectorTypeOf(key)
	if err != nil {
		return nil, err
	}

	from := key.From()
	meta, err := schema.Introspect(from)
	if err != nil {
		return nil, &ConfigurationError{Key: key, Reason: "cannot introspect " + from.String(), Err: err}
	}

	rels := meta.RelationsOfType(key.Target)
	if len(rels) == 0 {
		return nil, configErr(key, "%s has no relation of type %s", meta.Name, key.Target)
	}
	candidates := make(map[uintptr]*schema.Relation, len(rels))
	for _, r := range rels {
		candidates[r.Offset] = r
	}

	return &Binding{
		key:          key,
		shape:        key.Shape(),
		from:         meta,
		selectorType: selectorType,
		candidates:   candidates,
		proto:        reflect.New(meta.Type),
	}, nil
}

// Validate checks that the step's declared types are bindable and that its
// selector has the matching function type. It does not introspect entities.
func Validate(step Step) error {
	key := step.Key()
	want, err := selectorTypeOf(key)
	if err != nil {
		return err
	}
	return checkSelector(key, want, step.Selector)
}

func selectorTypeOf(key Key) (reflect.Type, error) {
	if !schema.IsEntityPointer(key.Owner) {
		return nil, configErr(key, "owner must be a pointer to an entity struct")
	}
	if !isNavigation(key.Target) {
		return nil, configErr(key, "target must be *E or []*E for an entity E")
	}
	if key.Previous != nil && !isNavigation(key.Previous) {
		return nil, configErr(key, "previous must be *E or []*E for an entity E")
	}
	return reflect.FuncOf(
		[]reflect.Type{key.From()},
		[]reflect.Type{reflect.PointerTo(key.Target)},
		false,
	), nil
}

func checkSelector(key Key, want reflect.Type, selector any) error {
	if selector == nil {
		return configErr(key, "selector is nil")
	}
	v := reflect.ValueOf(selector)
	if v.Type() != want {
		return configErr(key, "selector has type %s, want %s", v.Type(), want)
	}
	if v.IsNil() {
		return configErr(key, "selector is a nil %s", want)
	}
	return nil
}

func isNavigation(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Slice {
		return schema.IsEntityPointer(t.Elem())
	}
	return schema.IsEntityPointer(t)
}

// Apply runs the bound operation: it resolves the relation the selector
// addresses and adds it to q as a new chain (ShapeInclude) or as the next
// link of the open chain.
func (b *Binding) Apply(q query.Queryable, selector any) (*query.Query, error) {
	plan := q.Query()
	if err := plan.Err(); err != nil {
		return nil, err
	}
	if got := q.ElementType(); got != b.key.Owner {
		return nil, configErr(b.key, "applied to a query of %s", got)
	}
	if b.shape != ShapeInclude && plan.Tail() != b.key.Previous {
		tail := ""
		if plan.Tail() != nil {
			tail = plan.Tail().String()
		}
		return nil, &ChainOrderError{
			Step:  Step{Owner: b.key.Owner, Target: b.key.Target, Previous: b.key.Previous, Selector: selector},
			Index: -1,
			Tail:  tail,
		}
	}
	if err := checkSelector(b.key, b.selectorType, selector); err != nil {
		return nil, err
	}

	rel, err := b.relation(selector)
	if err != nil {
		return nil, err
	}
	if b.shape == ShapeInclude {
		return plan.StartInclude(rel)
	}
	return plan.ContinueInclude(rel)
}

// relation finds the relation field whose address the selector returns.
func (b *Binding) relation(selector any) (rel *schema.Relation, err error) {
	defer func() {
		if r := recover(); r != nil {
			rel, err = nil, configErr(b.key, "selector must return the address of a field of its argument (%v)", r)
		}
	}()

	out := reflect.ValueOf(selector).Call([]reflect.Value{b.proto})[0]
	if out.IsNil() {
		return nil, configErr(b.key, "selector returned nil")
	}

	base, addr := b.proto.Pointer(), out.Pointer()
	if addr < base || addr >= base+b.from.Type.Size() {
		return nil, configErr(b.key, "selector does not address a field of %s", b.from.Name)
	}
	rel, ok := b.candidates[addr-base]
	if !ok {
		return nil, configErr(b.key, "selector addresses a field of %s that is not a %s relation",
			b.from.Name, b.key.Target)
	}
	return rel, nil
}

func (b *Binding) String() string {
	return fmt.Sprintf("%s %s", b.shape, b.key)
}
