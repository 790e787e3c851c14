package query

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/Konsultn-Engineering/enspec/schema"
	"github.com/Konsultn-Engineering/enspec/utils"
)

// Tracking selects how the engine resolves entity identity while
// materializing results.
type Tracking uint8

const (
	// TrackAll keeps every materialized entity in the session's identity
	// map, so the same row yields the same pointer across queries.
	TrackAll Tracking = iota
	// NoTracking materializes a fresh object per row and shares nothing.
	NoTracking
	// NoTrackingWithIdentityResolution shares identity within one query only.
	NoTrackingWithIdentityResolution
)

func (t Tracking) String() string {
	switch t {
	case TrackAll:
		return "track-all"
	case NoTracking:
		return "no-tracking"
	case NoTrackingWithIdentityResolution:
		return "no-tracking-with-identity-resolution"
	default:
		return fmt.Sprintf("tracking(%d)", uint8(t))
	}
}

// Predicate is one condition on a root column. Predicates are ANDed.
type Predicate struct {
	Column string
	Op     Operator
	Value  any // []any for list operators, nil for unary ones
}

// Ordering is one ORDER BY term on a root column.
type Ordering struct {
	Column string
	Desc   bool
}

// IncludePath is a chain of relations navigated from the root entity.
type IncludePath []*schema.Relation

func (p IncludePath) String() string {
	names := make([]string, len(p))
	for i, r := range p {
		names[i] = r.Name
	}
	return strings.Join(names, ".")
}

// Queryable is anything the evaluator pipeline can transform.
type Queryable interface {
	// ElementType is the entity pointer type the query yields, e.g. *Order.
	ElementType() reflect.Type
	// Query exposes the underlying plan.
	Query() *Query
}

// Query is an immutable query plan over one root entity. Every method
// returns a modified copy and leaves the receiver untouched.
//
// Invalid input (unknown columns, bad operators) does not panic: it is
// recorded on the returned copy and reported by Err.
type Query struct {
	root     reflect.Type
	meta     *schema.EntityMeta
	where    []Predicate
	order    []Ordering
	skip     int
	take     int
	hasSkip  bool
	hasTake  bool
	tracking Tracking
	includes []IncludePath
	// tail is the field type loaded by the last include step, nil when no
	// include chain is open.
	tail   reflect.Type
	errors []error
}

// New starts a query over root, which must be a pointer to an entity struct.
func New(root reflect.Type) *Query {
	q := &Query{root: root}
	if !schema.IsEntityPointer(root) {
		q.errors = append(q.errors, fmt.Errorf("query root must be a pointer to an entity struct, got %v", root))
		return q
	}
	meta, err := schema.Introspect(root)
	if err != nil {
		q.errors = append(q.errors, err)
		return q
	}
	q.meta = meta
	return q
}

func (q *Query) ElementType() reflect.Type { return q.root }

func (q *Query) Query() *Query { return q }

// Meta returns the root entity metadata, nil when the root is invalid.
func (q *Query) Meta() *schema.EntityMeta { return q.meta }

func (q *Query) Predicates() []Predicate { return append([]Predicate(nil), q.where...) }

func (q *Query) Orderings() []Ordering { return append([]Ordering(nil), q.order...) }

// Offset returns the number of rows to skip and whether Skip was applied.
func (q *Query) Offset() (int, bool) { return q.skip, q.hasSkip }

// Limit returns the row cap and whether Take was applied.
func (q *Query) Limit() (int, bool) { return q.take, q.hasTake }

func (q *Query) Tracking() Tracking { return q.tracking }

// Includes returns the eager-load paths in the order they were declared.
func (q *Query) Includes() []IncludePath {
	out := make([]IncludePath, len(q.includes))
	for i, p := range q.includes {
		out[i] = append(IncludePath(nil), p...)
	}
	return out
}

// Tail returns the field type loaded by the last include step, or nil.
func (q *Query) Tail() reflect.Type { return q.tail }

// Err returns the first recorded error.
func (q *Query) Err() error {
	if len(q.errors) > 0 {
		return q.errors[0]
	}
	return nil
}

// Errors returns every recorded error.
func (q *Query) Errors() []error { return append([]error(nil), q.errors...) }

func (q *Query) clone() *Query {
	c := *q
	c.where = append([]Predicate(nil), q.where...)
	c.order = append([]Ordering(nil), q.order...)
	c.includes = append([]IncludePath(nil), q.includes...)
	c.errors = append([]error(nil), q.errors...)
	return &c
}

// cloneClosingChain copies q for a non-include operation, which ends any
// open include chain.
func (q *Query) cloneClosingChain() *Query {
	c := q.clone()
	c.tail = nil
	return c
}

func (q *Query) addError(err error) {
	q.errors = append(q.errors, err)
}

// WithError returns a copy of q carrying err, for operations defined
// outside this package that fail while building a plan.
func (q *Query) WithError(err error) *Query {
	c := q.clone()
	c.addError(err)
	return c
}

// column resolves a Go field name or a column name of the root entity.
func (q *Query) column(name string) (string, error) {
	if q.meta == nil {
		return "", fmt.Errorf("query has no valid root")
	}
	if f, ok := q.meta.FieldMap[name]; ok {
		return f.Column, nil
	}
	if f, ok := q.meta.ColumnMap[name]; ok {
		return f.Column, nil
	}
	return "", fmt.Errorf("%s has no column %q", q.meta.Name, name)
}

// Where adds a predicate. column may be a Go field name or a column name.
func (q *Query) Where(column string, op Operator, value any) *Query {
	c := q.cloneClosingChain()
	col, err := c.column(column)
	if err != nil {
		c.addError(err)
		return c
	}
	if !op.Valid() {
		c.addError(fmt.Errorf("unsupported operator %q", op))
		return c
	}

	switch {
	case op.IsUnary():
		value = nil
	case op.IsList():
		values, err := toList(value)
		if err != nil {
			c.addError(fmt.Errorf("%s %s: %w", column, op, err))
			return c
		}
		value = values
	}
	c.where = append(c.where, Predicate{Column: col, Op: op, Value: value})
	return c
}

func (q *Query) WhereEq(column string, value any) *Query {
	return q.Where(column, OpEqual, value)
}

func (q *Query) WhereNotEq(column string, value any) *Query {
	return q.Where(column, OpNotEqual, value)
}

func (q *Query) WhereIn(column string, values any) *Query {
	return q.Where(column, OpIn, values)
}

func (q *Query) WhereIsNull(column string) *Query {
	return q.Where(column, OpIsNull, nil)
}

func (q *Query) WhereIsNotNull(column string) *Query {
	return q.Where(column, OpIsNotNull, nil)
}

// OrderBy replaces any existing ordering with column.
func (q *Query) OrderBy(column string, desc bool) *Query {
	c := q.cloneClosingChain()
	c.order = c.order[:0]
	return c.appendOrder(column, desc)
}

// ThenBy adds a secondary ordering.
func (q *Query) ThenBy(column string, desc bool) *Query {
	return q.cloneClosingChain().appendOrder(column, desc)
}

func (q *Query) appendOrder(column string, desc bool) *Query {
	col, err := q.column(column)
	if err != nil {
		q.addError(err)
		return q
	}
	q.order = append(q.order, Ordering{Column: col, Desc: desc})
	return q
}

func (q *Query) Skip(n int) *Query {
	c := q.cloneClosingChain()
	if n < 0 {
		c.addError(fmt.Errorf("skip must not be negative, got %d", n))
		return c
	}
	c.skip, c.hasSkip = n, true
	return c
}

func (q *Query) Take(n int) *Query {
	c := q.cloneClosingChain()
	if n < 0 {
		c.addError(fmt.Errorf("take must not be negative, got %d", n))
		return c
	}
	c.take, c.hasTake = n, true
	return c
}

func (q *Query) WithTracking(t Tracking) *Query {
	c := q.cloneClosingChain()
	c.tracking = t
	return c
}

// StartInclude opens a new include chain with a relation of the root
// entity.
func (q *Query) StartInclude(rel *schema.Relation) (*Query, error) {
	if q.meta == nil {
		return nil, fmt.Errorf("include on invalid query: %w", q.Err())
	}
	if rel.Owner != q.meta.Type {
		return nil, fmt.Errorf("relation %s is not declared on %s", rel, q.meta.Name)
	}
	c := q.clone()
	c.includes = append(c.includes, IncludePath{rel})
	c.tail = rel.FieldType
	return c, nil
}

// ContinueInclude extends the open include chain with a relation of the
// entity loaded by the previous step. For a to-many previous step the
// relation is declared on the collection's element.
func (q *Query) ContinueInclude(rel *schema.Relation) (*Query, error) {
	if q.tail == nil || len(q.includes) == 0 {
		return nil, fmt.Errorf("no open include chain to continue with %s", rel)
	}
	from := q.tail
	if from.Kind() == reflect.Slice {
		from = from.Elem()
	}
	if rel.Owner != from.Elem() {
		return nil, fmt.Errorf("relation %s cannot follow %v", rel, q.tail)
	}

	c := q.clone()
	last := len(c.includes) - 1
	path := make(IncludePath, 0, len(c.includes[last])+1)
	path = append(path, c.includes[last]...)
	c.includes[last] = append(path, rel)
	c.tail = rel.FieldType
	return c, nil
}

// Fingerprint identifies the shape of the plan. Two plans with the same
// fingerprint render the same SQL text; only their arguments differ.
func (q *Query) Fingerprint() uint64 {
	fp := utils.NewFingerprint().String(typeKey(q.root))
	for _, p := range q.where {
		fp.String(p.Column).String(string(p.Op))
		if list, ok := p.Value.([]any); ok {
			fp.Uint64(uint64(len(list)))
		}
	}
	fp.Uint64(uint64(len(q.order)))
	for _, o := range q.order {
		fp.String(o.Column).Bool(o.Desc)
	}
	fp.Bool(q.hasSkip).Bool(q.hasTake)
	fp.Uint64(uint64(len(q.includes)))
	for _, path := range q.includes {
		fp.Uint64(uint64(len(path)))
		for _, rel := range path {
			fp.String(typeKey(rel.Owner)).String(rel.Name)
		}
	}
	return fp.Sum()
}

func (q *Query) String() string {
	var b strings.Builder
	b.WriteString("Query[")
	if q.meta != nil {
		b.WriteString(q.meta.Name)
	} else {
		fmt.Fprint(&b, q.root)
	}
	for _, p := range q.where {
		fmt.Fprintf(&b, " where %s %s", p.Column, p.Op)
	}
	for _, path := range q.includes {
		fmt.Fprintf(&b, " include %s", path)
	}
	b.WriteString("]")
	return b.String()
}

func typeKey(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Pointer {
		return "*" + typeKey(t.Elem())
	}
	return t.PkgPath() + "." + t.Name()
}

func toList(value any) ([]any, error) {
	if list, ok := value.([]any); ok {
		if len(list) == 0 {
			return nil, fmt.Errorf("empty value list")
		}
		return append([]any(nil), list...), nil
	}
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return []any{value}, nil
	}
	if v.Len() == 0 {
		return nil, fmt.Errorf("empty value list")
	}
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out, nil
}
