package evaluator

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Konsultn-Engineering/enspec/include"
	"github.com/Konsultn-Engineering/enspec/query"
	"github.com/Konsultn-Engineering/enspec/specification"
)

type Customer struct {
	ID      int64
	Name    string
	Address *Address
}

type Address struct {
	ID   int64
	City string
}

type OrderEntity struct {
	ID         int64
	Status     string
	CustomerID int64
	Customer   *Customer
	Items      []*Item
}

type Item struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Product   *Product
}

type Product struct {
	ID   int64
	Name string
}

var (
	orderCustomer   = func(o *OrderEntity) **Customer { return &o.Customer }
	customerAddress = func(c *Customer) **Address { return &c.Address }
	orderItems      = func(o *OrderEntity) *[]*Item { return &o.Items }
	itemProduct     = func(i *Item) **Product { return &i.Product }
)

// recorder is a Dispatcher that records the keys it resolves, in order.
type recorder struct {
	inner include.Dispatcher
	mu    sync.Mutex
	keys  []include.Key
}

func (r *recorder) Resolve(step include.Step) (*include.Binding, error) {
	r.mu.Lock()
	r.keys = append(r.keys, step.Key())
	r.mu.Unlock()
	return r.inner.Resolve(step)
}

// counting wraps an evaluator and counts calls.
type counting struct {
	Evaluator
	calls atomic.Int32
}

func (c *counting) Evaluate(q query.Queryable, s *specification.Specification) (query.Queryable, error) {
	c.calls.Add(1)
	return c.Evaluator.Evaluate(q, s)
}

type failing struct{ err error }

func (failing) Name() string              { return "failing" }
func (failing) IsCriteriaEvaluator() bool { return false }
func (f failing) Evaluate(query.Queryable, *specification.Specification) (query.Queryable, error) {
	return nil, f.err
}

func fullSpec() *specification.Specification {
	b := specification.New[*OrderEntity]().
		WhereEq("Status", "open").
		OrderByDesc("ID").
		OrderBy("Status").
		Skip(10).
		Take(5).
		AsNoTracking()
	specification.ThenInclude(specification.Include(b, orderCustomer), customerAddress)
	specification.ThenIncludeMany(specification.Include(b, orderItems), itemProduct)
	return b.Build()
}

func TestDefaultPipelineOrder(t *testing.T) {
	p := NewDefault(include.NewCache())
	assert.Equal(t, []string{"where", "include", "order", "pagination", "tracking"}, p.Names())
}

func TestApplyFullSpecification(t *testing.T) {
	p := NewDefault(include.NewCache())

	out, err := p.Apply(query.New(reflect.TypeOf(&OrderEntity{})), fullSpec())
	require.NoError(t, err)
	q := out.Query()

	assert.Equal(t, []query.Predicate{{Column: "status", Op: query.OpEqual, Value: "open"}}, q.Predicates())
	assert.Equal(t, []query.Ordering{{Column: "id", Desc: true}, {Column: "status"}}, q.Orderings())
	skip, _ := q.Offset()
	take, _ := q.Limit()
	assert.Equal(t, 10, skip)
	assert.Equal(t, 5, take)
	assert.Equal(t, query.NoTracking, q.Tracking())

	paths := q.Includes()
	require.Len(t, paths, 2)
	assert.Equal(t, "Customer.Address", paths[0].String())
	assert.Equal(t, "Items.Product", paths[1].String())
}

func TestIncludeChainsApplyInDeclarationOrder(t *testing.T) {
	rec := &recorder{inner: include.NewCache()}
	p := NewDefault(rec)

	// [A->B, B->C, B2->C2]: one chain of two steps, then an independent one.
	b := specification.New[*OrderEntity]()
	specification.ThenInclude(specification.Include(b, orderCustomer), customerAddress)
	specification.Include(b, orderItems)
	spec := b.Build()

	out, err := p.Apply(query.New(reflect.TypeOf(&OrderEntity{})), spec)
	require.NoError(t, err)

	steps := spec.IncludeSteps()
	require.Len(t, rec.keys, 3)
	for i, s := range steps {
		assert.Equal(t, s.Key(), rec.keys[i])
	}

	paths := out.Query().Includes()
	require.Len(t, paths, 2)
	assert.Equal(t, "Customer.Address", paths[0].String())
	assert.Equal(t, "Items", paths[1].String())
}

func TestChainOrderErrors(t *testing.T) {
	tOrder := reflect.TypeOf(&OrderEntity{})
	addressStep := include.Step{
		Owner:    tOrder,
		Target:   reflect.TypeOf(&Address{}),
		Previous: reflect.TypeOf(&Customer{}),
		Selector: customerAddress,
	}

	t.Run("ContinuationFirst", func(t *testing.T) {
		spec := specification.New[*OrderEntity]().AddInclude(addressStep).Build()
		_, err := NewDefault(include.NewCache()).Apply(query.New(tOrder), spec)

		assert.ErrorIs(t, err, include.ErrChainOrder)
		var chainErr *include.ChainOrderError
		require.ErrorAs(t, err, &chainErr)
		assert.Equal(t, 0, chainErr.Index)
		assert.Empty(t, chainErr.Tail)
	})

	t.Run("ContinuationAfterOtherChain", func(t *testing.T) {
		b := specification.New[*OrderEntity]()
		specification.Include(b, orderItems)
		spec := b.AddInclude(addressStep).Build()

		_, err := NewDefault(include.NewCache()).Apply(query.New(tOrder), spec)
		var chainErr *include.ChainOrderError
		require.ErrorAs(t, err, &chainErr)
		assert.Equal(t, 1, chainErr.Index)
		assert.Equal(t, "[]*evaluator.Item", chainErr.Tail)
	})
}

func TestErrorAbortsRemainingEvaluators(t *testing.T) {
	boom := errors.New("boom")
	after := &counting{Evaluator: Order{}}
	p := New([]Evaluator{Where{}, failing{err: boom}, after})

	out, err := p.Apply(query.New(reflect.TypeOf(&OrderEntity{})), fullSpec())
	assert.Nil(t, out)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing evaluator")
	assert.Zero(t, after.calls.Load())
}

func TestConfigurationErrorsPropagate(t *testing.T) {
	spec := specification.New[*OrderEntity]().AddInclude(include.Step{
		Owner:    reflect.TypeOf(&OrderEntity{}),
		Target:   reflect.TypeOf(&Customer{}),
		Selector: customerAddress,
	}).Build()

	_, err := NewDefault(include.NewCache()).Apply(query.New(reflect.TypeOf(&OrderEntity{})), spec)
	assert.ErrorIs(t, err, include.ErrConfiguration)

	bad := specification.New[*OrderEntity]().WhereEq("Nope", 1).Build()
	_, err = NewDefault(nil).Apply(query.New(reflect.TypeOf(&OrderEntity{})), bad)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "where evaluator")
}

func TestEmptySpecificationIsPassThrough(t *testing.T) {
	q := query.New(reflect.TypeOf(&OrderEntity{}))
	out, err := NewDefault(include.NewCache()).Apply(q, specification.New[*OrderEntity]().Build())
	require.NoError(t, err)
	assert.Same(t, q, out)
}

func TestApplyCriteriaSkipsNonCriteria(t *testing.T) {
	out, err := NewDefault(include.NewCache()).ApplyCriteria(query.New(reflect.TypeOf(&OrderEntity{})), fullSpec())
	require.NoError(t, err)

	q := out.Query()
	assert.Len(t, q.Predicates(), 1)
	assert.Empty(t, q.Orderings())
	assert.Empty(t, q.Includes())
	_, hasTake := q.Limit()
	assert.False(t, hasTake)
}

func TestElementTypeMismatch(t *testing.T) {
	_, err := NewDefault(nil).Apply(query.New(reflect.TypeOf(&Customer{})), fullSpec())
	var typeErr *query.ElementTypeError
	assert.ErrorAs(t, err, &typeErr)

	_, err = NewDefault(nil).Apply(query.New(reflect.TypeOf(&OrderEntity{})), nil)
	assert.Error(t, err)
}

func TestCachedAndDirectPipelinesAgree(t *testing.T) {
	q := query.New(reflect.TypeOf(&OrderEntity{}))

	cached, err := NewDefault(include.NewCache()).Apply(q, fullSpec())
	require.NoError(t, err)
	direct, err := NewDefault(include.Direct{}).Apply(q, fullSpec())
	require.NoError(t, err)

	assert.Equal(t, cached.Query().Fingerprint(), direct.Query().Fingerprint())
	assert.Equal(t, cached.Query().Includes(), direct.Query().Includes())
}

func TestConcurrentApplySharesBindings(t *testing.T) {
	var builds atomic.Int64
	c := include.NewCache(include.WithBuilder(func(k include.Key) (*include.Binding, error) {
		builds.Add(1)
		return include.Build(k)
	}))
	p := NewDefault(c)
	spec := fullSpec()

	var g errgroup.Group
	for i := 0; i < 64; i++ {
		g.Go(func() error {
			_, err := p.Apply(query.New(reflect.TypeOf(&OrderEntity{})), spec)
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, len(spec.IncludeSteps()), builds.Load())
	assert.Equal(t, len(spec.IncludeSteps()), c.Stats().Entries)
}

func TestWithSpecification(t *testing.T) {
	set, err := WithSpecification(NewDefault(nil), query.From[*OrderEntity](), fullSpec())
	require.NoError(t, err)
	assert.Len(t, set.Query().Includes(), 2)

	_, err = WithSpecification(NewDefault(nil), query.From[*Customer](), fullSpec())
	assert.Error(t, err)
}
