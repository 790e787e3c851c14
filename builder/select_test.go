package builder

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/enspec/ast"
	"github.com/Konsultn-Engineering/enspec/query"
	"github.com/Konsultn-Engineering/enspec/schema"
)

type Author struct {
	ID    int64
	Name  string
	Books []*Book
}

type Book struct {
	ID          int64
	AuthorID    int64
	Title       string
	Publisher   *Publisher
	PublisherID int64
}

type Publisher struct {
	ID   int64
	Name string
}

func relation(t *testing.T, v any, name string) *schema.Relation {
	t.Helper()
	meta, err := schema.Introspect(reflect.TypeOf(v))
	require.NoError(t, err)
	rel, ok := meta.Relation(name)
	require.True(t, ok, name)
	return rel
}

func authorsWithBooks(t *testing.T) *query.Query {
	t.Helper()
	q, err := query.New(reflect.TypeOf(&Author{})).StartInclude(relation(t, &Author{}, "Books"))
	require.NoError(t, err)
	q, err = q.ContinueInclude(relation(t, &Book{}, "Publisher"))
	require.NoError(t, err)
	return q
}

func TestSelectProjection(t *testing.T) {
	q := authorsWithBooks(t)
	// A second path through Books must reuse the join.
	q, err := q.StartInclude(relation(t, &Author{}, "Books"))
	require.NoError(t, err)

	stmt, proj, err := Select(q)
	require.NoError(t, err)

	require.Len(t, proj.Nodes, 3)
	assert.Len(t, stmt.Joins, 2)
	assert.Equal(t, 2+4+2, proj.Width)

	tests := []struct {
		alias    string
		parent   int
		offset   int
		relation string
	}{
		{"t0", -1, 0, ""},
		{"t1", 0, 2, "Books"},
		{"t2", 1, 6, "Publisher"},
	}
	for i, tt := range tests {
		n := proj.Nodes[i]
		assert.Equal(t, tt.alias, n.Alias)
		assert.Equal(t, tt.parent, n.Parent)
		assert.Equal(t, tt.offset, n.Offset)
		if tt.relation == "" {
			assert.Nil(t, n.Relation)
		} else {
			assert.Equal(t, tt.relation, n.Relation.Name)
		}
	}
	assert.Same(t, proj.Nodes[0], proj.Root())
	assert.Len(t, stmt.Columns, proj.Width)
}

func TestSelectPagingWrapsRoot(t *testing.T) {
	q := authorsWithBooks(t).WhereEq("Name", "x").OrderBy("ID", false).Take(3)

	stmt, _, err := Select(q)
	require.NoError(t, err)

	derived, ok := stmt.From.(*ast.DerivedTable)
	require.True(t, ok)
	assert.Equal(t, "t0", derived.Alias)
	assert.NotNil(t, derived.Stmt.Where)
	assert.NotNil(t, derived.Stmt.Limit)
	assert.Nil(t, stmt.Where)
	assert.Nil(t, stmt.Limit)
	assert.Len(t, stmt.OrderBy, 1)

	// Without includes the limit stays on the outer statement.
	plain, _, err := Select(query.New(reflect.TypeOf(&Author{})).Take(3))
	require.NoError(t, err)
	_, ok = plain.From.(*ast.Table)
	assert.True(t, ok)
	assert.NotNil(t, plain.Limit)
}

func TestBind(t *testing.T) {
	q := query.New(reflect.TypeOf(&Book{})).
		WhereEq("Title", "Dune").
		WhereIn("ID", []int64{4, 5}).
		Skip(10).
		Take(20)

	args, err := Bind(q, []ast.ArgSource{
		{Kind: ast.ArgPredicate, Index: 0, Item: -1},
		{Kind: ast.ArgPredicate, Index: 1, Item: 1},
		{Kind: ast.ArgLimit},
		{Kind: ast.ArgOffset},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"Dune", int64(5), 20, 10}, args)

	args, err = Bind(q, nil)
	assert.NoError(t, err)
	assert.Nil(t, args)
}

func TestBindErrors(t *testing.T) {
	q := query.New(reflect.TypeOf(&Book{})).WhereIn("ID", []int64{4})

	tests := []struct {
		name string
		src  ast.ArgSource
	}{
		{"NoPredicate", ast.ArgSource{Kind: ast.ArgPredicate, Index: 3, Item: -1}},
		{"NoListItem", ast.ArgSource{Kind: ast.ArgPredicate, Index: 0, Item: 2}},
		{"UnknownKind", ast.ArgSource{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind(q, []ast.ArgSource{tt.src})
			assert.Error(t, err)
		})
	}
}

func TestSelectRejectsFailedQuery(t *testing.T) {
	_, _, err := Select(query.New(reflect.TypeOf(&Book{})).WhereEq("Missing", 1))
	assert.Error(t, err)
}
