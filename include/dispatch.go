package include

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Konsultn-Engineering/enspec/cache"
	"github.com/Konsultn-Engineering/enspec/query"
)

// Dispatcher resolves a step to the binding for its type tuple.
type Dispatcher interface {
	Resolve(step Step) (*Binding, error)
}

// BuildFunc constructs the binding of a key. Build is the default.
type BuildFunc func(Key) (*Binding, error)

// Cache is the cached Dispatcher. Each distinct Key is built once and the
// binding reused for the life of the Cache; entries are never evicted, the
// key space being bounded by the type combinations a program uses.
//
// Only successful bindings are stored. Concurrent misses on one key share a
// single in-flight build; a failed build leaves no entry, so the next
// Resolve of the key builds again and fails again.
type Cache struct {
	entries  *cache.ReadMap[Key, *Binding]
	inflight singleflight.Group
	build    BuildFunc
	logger   *slog.Logger
	builds   atomic.Int64
}

type CacheOption func(*cacheOptions)

type cacheOptions struct {
	build         BuildFunc
	logger        *slog.Logger
	missThreshold int
}

// WithBuilder replaces Build, mainly to observe or fake builds in tests.
func WithBuilder(fn BuildFunc) CacheOption {
	return func(o *cacheOptions) { o.build = fn }
}

func WithLogger(l *slog.Logger) CacheOption {
	return func(o *cacheOptions) { o.logger = l }
}

// WithMissThreshold sets the snapshot rebuild threshold of the underlying
// ReadMap.
func WithMissThreshold(n int) CacheOption {
	return func(o *cacheOptions) { o.missThreshold = n }
}

func NewCache(opts ...CacheOption) *Cache {
	o := cacheOptions{build: Build, missThreshold: cache.DefaultMissThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Cache{
		entries: cache.NewReadMap[Key, *Binding](cache.WithMissThreshold(o.missThreshold)),
		build:   o.build,
		logger:  o.logger,
	}
}

// Resolve returns the binding for step, building it on first use. The
// selector is validated on every call; a step whose selector does not fit
// its types never reaches the map.
func (c *Cache) Resolve(step Step) (*Binding, error) {
	if err := Validate(step); err != nil {
		return nil, err
	}
	key := step.Key()

	if b, ok := c.entries.Load(key); ok {
		return b, nil
	}
	v, err, _ := c.inflight.Do(flightKey(key), func() (any, error) {
		return c.entries.LoadOrCompute(key, c.buildLogged)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Binding), nil
}

func (c *Cache) buildLogged(key Key) (*Binding, error) {
	c.builds.Add(1)
	start := time.Now()
	b, err := c.build(key)
	if err != nil {
		c.logger.Debug("include binding failed", "key", key.String(), "error", err)
		return nil, err
	}
	c.logger.Debug("include binding built",
		"key", key.String(),
		"shape", b.Shape().String(),
		"duration", time.Since(start),
	)
	return b, nil
}

// flightKey identifies key by type identity. Type names are not unique:
// two function-local types may share one.
func flightKey(key Key) string {
	return fmt.Sprintf("%x/%x/%x", typeID(key.Owner), typeID(key.Target), typeID(key.Previous))
}

func typeID(t reflect.Type) uintptr {
	if t == nil {
		return 0
	}
	return reflect.ValueOf(t).Pointer()
}

// CacheStats reports build activity and the underlying map counters.
type CacheStats struct {
	Builds  int64
	Entries int
	Map     cache.Stats
}

func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Builds:  c.builds.Load(),
		Entries: c.entries.Len(),
		Map:     c.entries.Stats(),
	}
}

// Contains reports whether a binding is cached for key.
func (c *Cache) Contains(key Key) bool {
	_, ok := c.entries.Load(key)
	return ok
}

// Reset drops every cached binding.
func (c *Cache) Reset() {
	c.entries.Clear()
}

// Direct is the uncached Dispatcher: it validates and builds on every call.
// It produces the same queries as Cache.
type Direct struct {
	Build BuildFunc
}

func (d Direct) Resolve(step Step) (*Binding, error) {
	if err := Validate(step); err != nil {
		return nil, err
	}
	build := d.Build
	if build == nil {
		build = Build
	}
	return build(step.Key())
}

var defaultCache = sync.OnceValue(func() *Cache { return NewCache() })

// Default returns the process-wide shared Cache.
func Default() *Cache { return defaultCache() }

// Apply resolves step with d and applies the binding to q.
func Apply(d Dispatcher, q query.Queryable, step Step) (*query.Query, error) {
	b, err := d.Resolve(step)
	if err != nil {
		return nil, err
	}
	return b.Apply(q, step.Selector)
}
