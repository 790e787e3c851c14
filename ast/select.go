package ast

type SelectStmt struct {
	Columns []Node
	From    Node // *Table or *DerivedTable
	Joins   []*JoinClause
	Where   *WhereClause
	OrderBy []*OrderByClause
	Limit   *LimitClause
}

func (s *SelectStmt) Type() NodeType         { return NodeSelect }
func (s *SelectStmt) Accept(v Visitor) error { return v.VisitSelect(s) }

// WhereClause ANDs its conditions.
type WhereClause struct {
	Conditions []Node
}

func (w *WhereClause) Type() NodeType         { return NodeWhere }
func (w *WhereClause) Accept(v Visitor) error { return v.VisitWhereClause(w) }

type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
)

type JoinClause struct {
	JoinType JoinType
	Table    *Table
	On       Node
}

func (j *JoinClause) Type() NodeType         { return NodeJoin }
func (j *JoinClause) Accept(v Visitor) error { return v.VisitJoinClause(j) }

type OrderByClause struct {
	Expr Node
	Desc bool
}

func (o *OrderByClause) Type() NodeType         { return NodeOrderBy }
func (o *OrderByClause) Accept(v Visitor) error { return v.VisitOrderByClause(o) }

// LimitClause holds bind parameters; either may be nil.
type LimitClause struct {
	Count  *Value
	Offset *Value
}

func (l *LimitClause) Type() NodeType         { return NodeLimit }
func (l *LimitClause) Accept(v Visitor) error { return v.VisitLimitClause(l) }
