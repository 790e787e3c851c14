// Package ast is the syntax tree of the SELECT statements rendered for a
// query plan.
package ast

type NodeType int

const (
	NodeSelect NodeType = iota
	NodeColumn
	NodeTable
	NodeDerivedTable
	NodeValue
	NodeArray
	NodeBinaryExpr
	NodeUnaryExpr
	NodeWhere
	NodeJoin
	NodeOrderBy
	NodeLimit
)

type Node interface {
	Type() NodeType
	Accept(v Visitor) error
}

type Visitor interface {
	VisitSelect(*SelectStmt) error
	VisitColumn(*Column) error
	VisitTable(*Table) error
	VisitDerivedTable(*DerivedTable) error
	VisitValue(*Value) error
	VisitArray(*Array) error
	VisitBinaryExpr(*BinaryExpr) error
	VisitUnaryExpr(*UnaryExpr) error
	VisitWhereClause(*WhereClause) error
	VisitJoinClause(*JoinClause) error
	VisitOrderByClause(*OrderByClause) error
	VisitLimitClause(*LimitClause) error
}
