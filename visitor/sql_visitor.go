package visitor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Konsultn-Engineering/enspec/ast"
	"github.com/Konsultn-Engineering/enspec/dialect"
)

var visitorPool = sync.Pool{
	New: func() any {
		return &SQLVisitor{
			args:    make([]any, 0, 8),
			sources: make([]ast.ArgSource, 0, 8),
		}
	},
}

// SQLVisitor renders a syntax tree to SQL text with bind parameters. It is
// pooled and not safe for concurrent use.
type SQLVisitor struct {
	sb      strings.Builder
	args    []any
	sources []ast.ArgSource
	dialect dialect.Dialect
}

func NewSQLVisitor(d dialect.Dialect) *SQLVisitor {
	v := visitorPool.Get().(*SQLVisitor)
	v.dialect = d
	v.Reset()
	return v
}

func (v *SQLVisitor) Release() {
	v.dialect = nil
	v.Reset()
	visitorPool.Put(v)
}

func (v *SQLVisitor) Reset() {
	v.sb.Reset()
	v.args = v.args[:0]
	v.sources = v.sources[:0]
}

// Build renders root and returns the SQL, the bound values and where each
// value came from in the plan. The returned slices are owned by the caller.
func (v *SQLVisitor) Build(root ast.Node) (string, []any, []ast.ArgSource, error) {
	v.Reset()
	if err := root.Accept(v); err != nil {
		return "", nil, nil, err
	}
	args := append([]any(nil), v.args...)
	sources := append([]ast.ArgSource(nil), v.sources...)
	return v.sb.String(), args, sources, nil
}

func (v *SQLVisitor) bind(val *ast.Value) {
	v.args = append(v.args, val.Val)
	v.sources = append(v.sources, val.Source)
	v.sb.WriteString(v.dialect.Placeholder(len(v.args)))
}

func (v *SQLVisitor) VisitSelect(s *ast.SelectStmt) error {
	//	SELECT column_list
	//	FROM table_name | (subquery) AS alias
	//	[LEFT JOIN ...]
	//	[WHERE condition]
	//	[ORDER BY column_list]
	//	[LIMIT count] [OFFSET count]
	if len(s.Columns) == 0 {
		return fmt.Errorf("select without columns")
	}
	if s.From == nil {
		return fmt.Errorf("select without FROM")
	}

	v.sb.WriteString("SELECT ")
	for i, col := range s.Columns {
		if i > 0 {
			v.sb.WriteString(", ")
		}
		if err := col.Accept(v); err != nil {
			return err
		}
	}

	v.sb.WriteString(" FROM ")
	if err := s.From.Accept(v); err != nil {
		return err
	}

	for _, join := range s.Joins {
		if err := join.Accept(v); err != nil {
			return err
		}
	}

	if s.Where != nil {
		if err := s.Where.Accept(v); err != nil {
			return err
		}
	}

	for i, o := range s.OrderBy {
		if i == 0 {
			v.sb.WriteString(" ORDER BY ")
		} else {
			v.sb.WriteString(", ")
		}
		if err := o.Accept(v); err != nil {
			return err
		}
	}

	if s.Limit != nil {
		return s.Limit.Accept(v)
	}
	return nil
}

func (v *SQLVisitor) VisitColumn(c *ast.Column) error {
	if c.Table != "" {
		v.sb.WriteString(v.dialect.QuoteIdentifier(c.Table))
		v.sb.WriteByte('.')
	}
	if c.Name == "*" {
		v.sb.WriteByte('*')
	} else {
		v.sb.WriteString(v.dialect.QuoteIdentifier(c.Name))
	}

	if c.Alias != "" && c.Alias != c.Name {
		v.sb.WriteString(" AS ")
		v.sb.WriteString(v.dialect.QuoteIdentifier(c.Alias))
	}
	return nil
}

func (v *SQLVisitor) VisitTable(t *ast.Table) error {
	if t.Schema != "" {
		v.sb.WriteString(v.dialect.QuoteIdentifier(t.Schema))
		v.sb.WriteByte('.')
	}
	v.sb.WriteString(v.dialect.QuoteIdentifier(t.Name))

	if t.Alias != "" && t.Alias != t.Name {
		v.sb.WriteString(" AS ")
		v.sb.WriteString(v.dialect.QuoteIdentifier(t.Alias))
	}
	return nil
}

func (v *SQLVisitor) VisitDerivedTable(d *ast.DerivedTable) error {
	if d.Alias == "" {
		return fmt.Errorf("derived table without alias")
	}
	v.sb.WriteByte('(')
	if err := d.Stmt.Accept(v); err != nil {
		return err
	}
	v.sb.WriteString(") AS ")
	v.sb.WriteString(v.dialect.QuoteIdentifier(d.Alias))
	return nil
}

func (v *SQLVisitor) VisitValue(val *ast.Value) error {
	v.bind(val)
	return nil
}

func (v *SQLVisitor) VisitArray(a *ast.Array) error {
	if len(a.Values) == 0 {
		return fmt.Errorf("empty value list")
	}
	v.sb.WriteByte('(')
	for i, val := range a.Values {
		if i > 0 {
			v.sb.WriteString(", ")
		}
		v.bind(val)
	}
	v.sb.WriteByte(')')
	return nil
}

func (v *SQLVisitor) VisitBinaryExpr(expr *ast.BinaryExpr) error {
	op := expr.Operator
	fold := false
	if !v.dialect.SupportsILike() {
		switch op {
		case "ILIKE":
			op, fold = "LIKE", true
		case "NOT ILIKE":
			op, fold = "NOT LIKE", true
		}
	}

	if err := v.operand(expr.Left, fold); err != nil {
		return err
	}
	v.sb.WriteByte(' ')
	v.sb.WriteString(op)
	v.sb.WriteByte(' ')
	return v.operand(expr.Right, fold)
}

// operand renders n, wrapped in LOWER() when emulating ILIKE.
func (v *SQLVisitor) operand(n ast.Node, fold bool) error {
	if !fold {
		return n.Accept(v)
	}
	v.sb.WriteString("LOWER(")
	if err := n.Accept(v); err != nil {
		return err
	}
	v.sb.WriteByte(')')
	return nil
}

func (v *SQLVisitor) VisitUnaryExpr(expr *ast.UnaryExpr) error {
	if err := expr.Operand.Accept(v); err != nil {
		return err
	}
	v.sb.WriteByte(' ')
	v.sb.WriteString(expr.Operator)
	return nil
}

func (v *SQLVisitor) VisitWhereClause(clause *ast.WhereClause) error {
	if clause == nil || len(clause.Conditions) == 0 {
		return nil
	}
	v.sb.WriteString(" WHERE ")
	for i, cond := range clause.Conditions {
		if i > 0 {
			v.sb.WriteString(" AND ")
		}
		if err := cond.Accept(v); err != nil {
			return err
		}
	}
	return nil
}

func (v *SQLVisitor) VisitJoinClause(clause *ast.JoinClause) error {
	if clause == nil || clause.Table == nil {
		return nil
	}
	v.sb.WriteByte(' ')
	v.sb.WriteString(joinKeyword(clause.JoinType))
	v.sb.WriteByte(' ')
	if err := clause.Table.Accept(v); err != nil {
		return err
	}
	if clause.On != nil {
		v.sb.WriteString(" ON ")
		return clause.On.Accept(v)
	}
	return nil
}

func joinKeyword(t ast.JoinType) string {
	switch t {
	case ast.JoinLeft:
		return "LEFT JOIN"
	default:
		return "JOIN"
	}
}

func (v *SQLVisitor) VisitOrderByClause(clause *ast.OrderByClause) error {
	if err := clause.Expr.Accept(v); err != nil {
		return err
	}
	if clause.Desc {
		v.sb.WriteString(" DESC")
	} else {
		v.sb.WriteString(" ASC")
	}
	return nil
}

func (v *SQLVisitor) VisitLimitClause(clause *ast.LimitClause) error {
	if clause.Count != nil {
		v.sb.WriteString(" LIMIT ")
		v.bind(clause.Count)
	} else if clause.Offset != nil {
		if all := v.dialect.UnboundedLimit(); all != "" {
			v.sb.WriteString(" LIMIT ")
			v.sb.WriteString(all)
		}
	}
	if clause.Offset != nil {
		v.sb.WriteString(" OFFSET ")
		v.bind(clause.Offset)
	}
	return nil
}

var _ ast.Visitor = (*SQLVisitor)(nil)
