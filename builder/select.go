// Package builder lowers a query plan to a SELECT syntax tree and records
// how result columns map back to entities.
package builder

import (
	"fmt"
	"strconv"

	"github.com/Konsultn-Engineering/enspec/ast"
	"github.com/Konsultn-Engineering/enspec/query"
	"github.com/Konsultn-Engineering/enspec/schema"
)

const rootAlias = "t0"

// EntityNode is one entity in the include tree of a statement.
type EntityNode struct {
	Meta     *schema.EntityMeta
	Alias    string
	Parent   int              // index of the parent node, -1 for the root
	Relation *schema.Relation // relation from the parent, nil for the root
	Offset   int              // position of the node's first column in a row
}

// Projection describes the columns of a rendered statement: the root's
// fields, then each included entity's fields in node order.
type Projection struct {
	Nodes []*EntityNode
	Width int
}

// Root returns the root entity node.
func (p *Projection) Root() *EntityNode { return p.Nodes[0] }

// Children returns the indexes of nodes whose parent is i.
func (p *Projection) Children(i int) []int {
	var out []int
	for j, n := range p.Nodes {
		if n.Parent == i {
			out = append(out, j)
		}
	}
	return out
}

// Select builds the statement for q. Include paths sharing a prefix share
// joins. When q both pages and includes, paging applies to the root rows in
// a derived table so that joined rows do not count against the limit.
func Select(q *query.Query) (*ast.SelectStmt, *Projection, error) {
	if err := q.Err(); err != nil {
		return nil, nil, err
	}
	meta := q.Meta()
	if meta == nil {
		return nil, nil, fmt.Errorf("query has no entity metadata")
	}

	proj := &Projection{}
	proj.add(&EntityNode{Meta: meta, Alias: rootAlias, Parent: -1})

	stmt := &ast.SelectStmt{}
	for _, path := range q.Includes() {
		if err := proj.addPath(stmt, path); err != nil {
			return nil, nil, err
		}
	}
	for _, n := range proj.Nodes {
		for _, f := range n.Meta.Fields {
			stmt.Columns = append(stmt.Columns, ast.NewColumn(n.Alias, f.Column, ""))
		}
	}

	where := whereClause(q)
	limit := limitClause(q)
	order := orderBy(q)

	rootTable := ast.NewTable("", meta.TableName, rootAlias)
	if limit != nil && len(stmt.Joins) > 0 {
		inner := &ast.SelectStmt{
			Columns: []ast.Node{ast.NewColumn(rootAlias, "*", "")},
			From:    rootTable,
			Where:   where,
			OrderBy: order,
			Limit:   limit,
		}
		stmt.From = &ast.DerivedTable{Stmt: inner, Alias: rootAlias}
		stmt.OrderBy = orderBy(q)
		return stmt, proj, nil
	}

	stmt.From = rootTable
	stmt.Where = where
	stmt.OrderBy = order
	stmt.Limit = limit
	return stmt, proj, nil
}

func (p *Projection) add(n *EntityNode) int {
	n.Offset = p.Width
	p.Width += len(n.Meta.Fields)
	p.Nodes = append(p.Nodes, n)
	return len(p.Nodes) - 1
}

// addPath walks path from the root, reusing nodes already joined for a
// shared prefix.
func (p *Projection) addPath(stmt *ast.SelectStmt, path query.IncludePath) error {
	parent := 0
	for _, rel := range path {
		if idx, ok := p.find(parent, rel); ok {
			parent = idx
			continue
		}
		idx, join, err := p.join(parent, rel)
		if err != nil {
			return err
		}
		stmt.Joins = append(stmt.Joins, join)
		parent = idx
	}
	return nil
}

func (p *Projection) find(parent int, rel *schema.Relation) (int, bool) {
	for i, n := range p.Nodes {
		if n.Parent == parent && n.Relation == rel {
			return i, true
		}
	}
	return 0, false
}

func (p *Projection) join(parent int, rel *schema.Relation) (int, *ast.JoinClause, error) {
	from := p.Nodes[parent]
	target, err := schema.Introspect(rel.Target)
	if err != nil {
		return 0, nil, err
	}
	alias := "t" + strconv.Itoa(len(p.Nodes))

	var on ast.Node
	switch rel.Cardinality {
	case schema.ToOne:
		fk, ok := from.Meta.ColumnMap[rel.ForeignKey]
		if !ok {
			return 0, nil, fmt.Errorf("include %s: %s has no column %q", rel, from.Meta.Name, rel.ForeignKey)
		}
		if target.PrimaryKey == nil {
			return 0, nil, fmt.Errorf("include %s: %s has no primary key", rel, target.Name)
		}
		on = ast.NewBinaryExpr(
			ast.NewColumn(from.Alias, fk.Column, ""),
			string(query.OpEqual),
			ast.NewColumn(alias, target.PrimaryKey.Column, ""),
		)
	case schema.ToMany:
		fk, ok := target.ColumnMap[rel.ForeignKey]
		if !ok {
			return 0, nil, fmt.Errorf("include %s: %s has no column %q", rel, target.Name, rel.ForeignKey)
		}
		if from.Meta.PrimaryKey == nil {
			return 0, nil, fmt.Errorf("include %s: %s has no primary key", rel, from.Meta.Name)
		}
		if target.PrimaryKey == nil {
			return 0, nil, fmt.Errorf("include %s: %s has no primary key", rel, target.Name)
		}
		on = ast.NewBinaryExpr(
			ast.NewColumn(alias, fk.Column, ""),
			string(query.OpEqual),
			ast.NewColumn(from.Alias, from.Meta.PrimaryKey.Column, ""),
		)
	default:
		return 0, nil, fmt.Errorf("include %s: unknown cardinality", rel)
	}

	idx := p.add(&EntityNode{Meta: target, Alias: alias, Parent: parent, Relation: rel})
	return idx, &ast.JoinClause{
		JoinType: ast.JoinLeft,
		Table:    ast.NewTable("", target.TableName, alias),
		On:       on,
	}, nil
}

func whereClause(q *query.Query) *ast.WhereClause {
	preds := q.Predicates()
	if len(preds) == 0 {
		return nil
	}
	w := &ast.WhereClause{Conditions: make([]ast.Node, 0, len(preds))}
	for i, p := range preds {
		col := ast.NewColumn(rootAlias, p.Column, "")
		switch {
		case p.Op.IsUnary():
			w.Conditions = append(w.Conditions, ast.NewUnaryExpr(col, string(p.Op)))
		case p.Op.IsList():
			list := p.Value.([]any)
			arr := &ast.Array{Values: make([]*ast.Value, len(list))}
			for j, v := range list {
				arr.Values[j] = ast.NewValue(v, ast.ArgSource{Kind: ast.ArgPredicate, Index: i, Item: j})
			}
			w.Conditions = append(w.Conditions, ast.NewBinaryExpr(col, string(p.Op), arr))
		default:
			val := ast.NewValue(p.Value, ast.ArgSource{Kind: ast.ArgPredicate, Index: i, Item: -1})
			w.Conditions = append(w.Conditions, ast.NewBinaryExpr(col, string(p.Op), val))
		}
	}
	return w
}

func orderBy(q *query.Query) []*ast.OrderByClause {
	orders := q.Orderings()
	if len(orders) == 0 {
		return nil
	}
	out := make([]*ast.OrderByClause, len(orders))
	for i, o := range orders {
		out[i] = &ast.OrderByClause{Expr: ast.NewColumn(rootAlias, o.Column, ""), Desc: o.Desc}
	}
	return out
}

func limitClause(q *query.Query) *ast.LimitClause {
	take, hasTake := q.Limit()
	skip, hasSkip := q.Offset()
	if !hasTake && !hasSkip {
		return nil
	}
	l := &ast.LimitClause{}
	if hasTake {
		l.Count = ast.NewValue(take, ast.ArgSource{Kind: ast.ArgLimit})
	}
	if hasSkip {
		l.Offset = ast.NewValue(skip, ast.ArgSource{Kind: ast.ArgOffset})
	}
	return l
}

// Bind extracts the values of q for sources recorded while rendering
// another plan with the same fingerprint.
func Bind(q *query.Query, sources []ast.ArgSource) ([]any, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	preds := q.Predicates()
	args := make([]any, len(sources))
	for i, src := range sources {
		switch src.Kind {
		case ast.ArgPredicate:
			if src.Index >= len(preds) {
				return nil, fmt.Errorf("argument %d: no predicate %d", i, src.Index)
			}
			v := preds[src.Index].Value
			if src.Item >= 0 {
				list, ok := v.([]any)
				if !ok || src.Item >= len(list) {
					return nil, fmt.Errorf("argument %d: predicate %d has no value %d", i, src.Index, src.Item)
				}
				v = list[src.Item]
			}
			args[i] = v
		case ast.ArgLimit:
			args[i], _ = q.Limit()
		case ast.ArgOffset:
			args[i], _ = q.Offset()
		default:
			return nil, fmt.Errorf("argument %d: unknown source", i)
		}
	}
	return args, nil
}
