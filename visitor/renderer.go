package visitor

import (
	"reflect"
	"strings"

	"github.com/Konsultn-Engineering/enspec/ast"
	"github.com/Konsultn-Engineering/enspec/builder"
	"github.com/Konsultn-Engineering/enspec/cache"
	"github.com/Konsultn-Engineering/enspec/dialect"
	"github.com/Konsultn-Engineering/enspec/query"
)

// Template is the value-free part of a rendered statement, shared by every
// plan with the same fingerprint.
type Template struct {
	SQL        string
	Sources    []ast.ArgSource
	Projection *builder.Projection
}

// Statement is a rendered plan ready to execute.
type Statement struct {
	SQL         string
	Args        []any
	Projection  *builder.Projection
	Fingerprint uint64
}

// Debug interpolates the arguments for logging. Never execute the result.
func (s *Statement) Debug(d dialect.Dialect) string {
	if len(s.Args) == 0 {
		return s.SQL
	}
	var b strings.Builder
	b.Grow(len(s.SQL) + 8*len(s.Args))

	n, sql := 0, s.SQL
	for n < len(s.Args) {
		ph := d.Placeholder(n + 1)
		i := strings.Index(sql, ph)
		if i < 0 {
			break
		}
		b.WriteString(sql[:i])
		b.WriteString(d.RenderValue(s.Args[n]))
		sql = sql[i+len(ph):]
		n++
	}
	b.WriteString(sql)
	return b.String()
}

// Renderer turns query plans into statements for one dialect, caching the
// SQL text by root type and plan fingerprint. It is safe for concurrent use.
type Renderer struct {
	dialect   dialect.Dialect
	templates *cache.StatementCache[templateKey, *Template]
}

// templateKey pairs the fingerprint with the root type itself, since
// distinct types may share a name and so a fingerprint.
type templateKey struct {
	root reflect.Type
	fp   uint64
}

// NewRenderer returns a renderer caching up to size templates; size <= 0
// uses the cache default.
func NewRenderer(d dialect.Dialect, size int) (*Renderer, error) {
	templates, err := cache.NewStatementCache[templateKey, *Template](size)
	if err != nil {
		return nil, err
	}
	return &Renderer{dialect: d, templates: templates}, nil
}

func (r *Renderer) Dialect() dialect.Dialect { return r.dialect }

// Render renders q. Plans that differ only by argument values reuse the
// cached SQL and have their arguments bound afresh.
func (r *Renderer) Render(q query.Queryable) (*Statement, error) {
	plan := q.Query()
	if err := plan.Err(); err != nil {
		return nil, err
	}
	fp := plan.Fingerprint()

	tpl, err := r.templates.GetOrRender(templateKey{root: plan.ElementType(), fp: fp}, func() (*Template, error) {
		return r.template(plan)
	})
	if err != nil {
		return nil, err
	}

	args, err := builder.Bind(plan, tpl.Sources)
	if err != nil {
		return nil, err
	}
	return &Statement{SQL: tpl.SQL, Args: args, Projection: tpl.Projection, Fingerprint: fp}, nil
}

func (r *Renderer) template(plan *query.Query) (*Template, error) {
	stmt, proj, err := builder.Select(plan)
	if err != nil {
		return nil, err
	}
	v := NewSQLVisitor(r.dialect)
	defer v.Release()

	sql, _, sources, err := v.Build(stmt)
	if err != nil {
		return nil, err
	}
	return &Template{SQL: sql, Sources: sources, Projection: proj}, nil
}

// Cached reports how many templates are cached.
func (r *Renderer) Cached() int { return r.templates.Len() }
