package ast

// Column references Table.Name. A Name of "*" is rendered unquoted.
type Column struct {
	Table string
	Name  string
	Alias string
}

func NewColumn(table, name, alias string) *Column {
	return &Column{Table: table, Name: name, Alias: alias}
}

func (c *Column) Type() NodeType         { return NodeColumn }
func (c *Column) Accept(v Visitor) error { return v.VisitColumn(c) }

type Table struct {
	Schema string
	Name   string
	Alias  string
}

func NewTable(schema, name, alias string) *Table {
	return &Table{Schema: schema, Name: name, Alias: alias}
}

func (t *Table) Type() NodeType         { return NodeTable }
func (t *Table) Accept(v Visitor) error { return v.VisitTable(t) }

// DerivedTable is a parenthesized SELECT used in FROM.
type DerivedTable struct {
	Stmt  *SelectStmt
	Alias string
}

func (d *DerivedTable) Type() NodeType         { return NodeDerivedTable }
func (d *DerivedTable) Accept(v Visitor) error { return v.VisitDerivedTable(d) }

// ArgKind tells where in a query plan a bound value comes from.
type ArgKind uint8

const (
	ArgPredicate ArgKind = iota + 1
	ArgLimit
	ArgOffset
)

// ArgSource locates a bound value in the plan: predicate Index, and Item
// within a list predicate (-1 for a single-valued predicate). Rendered
// statements record sources so their SQL can be reused for another plan of
// the same shape.
type ArgSource struct {
	Kind  ArgKind
	Index int
	Item  int
}

// Value is a bind parameter.
type Value struct {
	Val    any
	Source ArgSource
}

func NewValue(val any, src ArgSource) *Value {
	return &Value{Val: val, Source: src}
}

func (v *Value) Type() NodeType           { return NodeValue }
func (v *Value) Accept(vis Visitor) error { return vis.VisitValue(v) }

// Array is a parenthesized list of bind parameters, for IN.
type Array struct {
	Values []*Value
}

func (a *Array) Type() NodeType         { return NodeArray }
func (a *Array) Accept(v Visitor) error { return v.VisitArray(a) }

type BinaryExpr struct {
	Left     Node
	Operator string
	Right    Node
}

func NewBinaryExpr(left Node, op string, right Node) *BinaryExpr {
	return &BinaryExpr{Left: left, Operator: op, Right: right}
}

func (b *BinaryExpr) Type() NodeType         { return NodeBinaryExpr }
func (b *BinaryExpr) Accept(v Visitor) error { return v.VisitBinaryExpr(b) }

// UnaryExpr is a postfix operator such as IS NULL.
type UnaryExpr struct {
	Operator string
	Operand  Node
}

func NewUnaryExpr(operand Node, op string) *UnaryExpr {
	return &UnaryExpr{Operator: op, Operand: operand}
}

func (u *UnaryExpr) Type() NodeType         { return NodeUnaryExpr }
func (u *UnaryExpr) Accept(v Visitor) error { return v.VisitUnaryExpr(u) }
