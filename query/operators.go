package query

// Operator is a comparison used in a predicate.
type Operator string

const (
	OpEqual              Operator = "="
	OpNotEqual           Operator = "<>"
	OpLessThan           Operator = "<"
	OpLessThanOrEqual    Operator = "<="
	OpGreaterThan        Operator = ">"
	OpGreaterThanOrEqual Operator = ">="
)

// Pattern matching
const (
	OpLike     Operator = "LIKE"
	OpNotLike  Operator = "NOT LIKE"
	OpILike    Operator = "ILIKE"
	OpNotILike Operator = "NOT ILIKE"
)

// Set operations
const (
	OpIn    Operator = "IN"
	OpNotIn Operator = "NOT IN"
)

// Null operations
const (
	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"
)

var knownOperators = map[Operator]struct{}{
	OpEqual: {}, OpNotEqual: {}, OpLessThan: {}, OpLessThanOrEqual: {},
	OpGreaterThan: {}, OpGreaterThanOrEqual: {},
	OpLike: {}, OpNotLike: {}, OpILike: {}, OpNotILike: {},
	OpIn: {}, OpNotIn: {}, OpIsNull: {}, OpIsNotNull: {},
}

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	_, ok := knownOperators[op]
	return ok
}

// IsUnary reports whether the operator takes no value.
func (op Operator) IsUnary() bool {
	return op == OpIsNull || op == OpIsNotNull
}

// IsList reports whether the operator takes a list of values.
func (op Operator) IsList() bool {
	return op == OpIn || op == OpNotIn
}
