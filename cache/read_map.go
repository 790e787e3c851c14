package cache

import (
	"math"
	"sync"
	"sync/atomic"
)

// DefaultMissThreshold is the number of reads that fall through to the base
// store before the read snapshot is rebuilt.
const DefaultMissThreshold = 10

// ReadMap is a concurrent map for read-mostly workloads such as type-keyed
// build caches, where the key space settles after warm-up.
//
// A sync.Map is the source of truth. Reads are served from an immutable
// snapshot of it when one is current, which costs two atomic loads and a
// plain map lookup. Every write drops the snapshot; once enough reads have
// fallen through to the base store, the next one copies the store into a
// fresh snapshot.
//
// The zero value is ready to use with DefaultMissThreshold.
type ReadMap[K comparable, V any] struct {
	base sync.Map // K -> V

	snap      atomic.Pointer[snapshot[K, V]]
	gen       atomic.Uint64
	misses    atomic.Int32
	threshold int32

	missReads atomic.Uint64
	rebuilds  atomic.Uint64
	writes    atomic.Uint64
}

// snapshot is only served while gen matches the map's write generation.
type snapshot[K comparable, V any] struct {
	gen  uint64
	data map[K]V
}

// Stats reports slow-path activity of a ReadMap.
type Stats struct {
	MissReads uint64 // reads served by the base store
	Rebuilds  uint64 // snapshots published
	Writes    uint64 // mutations that invalidated the snapshot
}

type ReadMapOption func(*readMapConfig)

type readMapConfig struct {
	missThreshold int
}

// WithMissThreshold sets how many fall-through reads are tolerated before
// the snapshot is rebuilt. Values below 1 select DefaultMissThreshold and
// values above math.MaxInt32 are clamped to it.
func WithMissThreshold(n int) ReadMapOption {
	return func(c *readMapConfig) {
		c.missThreshold = n
	}
}

func NewReadMap[K comparable, V any](opts ...ReadMapOption) *ReadMap[K, V] {
	cfg := readMapConfig{missThreshold: DefaultMissThreshold}
	for _, opt := range opts {
		opt(&cfg)
	}
	m := &ReadMap[K, V]{}
	if cfg.missThreshold > 0 {
		m.threshold = int32(min(cfg.missThreshold, math.MaxInt32))
	}
	return m
}

// Load returns the value stored under key. It never blocks; a value written
// concurrently may not be visible until the write returns.
func (m *ReadMap[K, V]) Load(key K) (V, bool) {
	if s := m.current(); s != nil {
		v, ok := s.data[key]
		return v, ok
	}
	return m.loadSlow(key)
}

// LoadOrCompute returns the value for key, building and publishing it with
// build when absent. Racing callers may each run build, but only one result
// is published and every caller receives that one. A build error is returned
// as is and leaves the map untouched.
func (m *ReadMap[K, V]) LoadOrCompute(key K, build func(K) (V, error)) (V, error) {
	if v, ok := m.Load(key); ok {
		return v, nil
	}

	v, err := build(key)
	if err != nil {
		var zero V
		return zero, err
	}

	actual, loaded := m.base.LoadOrStore(key, v)
	if !loaded {
		m.invalidate()
	}
	return cast[V](actual), nil
}

// Store sets the value for key.
func (m *ReadMap[K, V]) Store(key K, value V) {
	m.base.Store(key, value)
	m.invalidate()
}

// TryAdd stores value only if key is absent and reports whether it did.
func (m *ReadMap[K, V]) TryAdd(key K, value V) bool {
	if _, loaded := m.base.LoadOrStore(key, value); loaded {
		return false
	}
	m.invalidate()
	return true
}

// Delete removes key and reports whether it was present.
func (m *ReadMap[K, V]) Delete(key K) bool {
	if _, loaded := m.base.LoadAndDelete(key); !loaded {
		return false
	}
	m.invalidate()
	return true
}

// CompareAndDelete removes key only while it still maps to old. V must be
// comparable at run time, as for sync.Map.
func (m *ReadMap[K, V]) CompareAndDelete(key K, old V) bool {
	if !m.base.CompareAndDelete(key, old) {
		return false
	}
	m.invalidate()
	return true
}

// Clear removes every entry.
func (m *ReadMap[K, V]) Clear() {
	m.base.Clear()
	m.invalidate()
}

// Len returns the number of entries.
func (m *ReadMap[K, V]) Len() int {
	if s := m.current(); s != nil {
		return len(s.data)
	}
	n := 0
	m.base.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Range calls fn for each entry until fn returns false. Iteration order is
// unspecified and entries written during the call may or may not be seen.
func (m *ReadMap[K, V]) Range(fn func(K, V) bool) {
	if s := m.current(); s != nil {
		for k, v := range s.data {
			if !fn(k, v) {
				return
			}
		}
		return
	}
	m.base.Range(func(k, v any) bool {
		return fn(k.(K), cast[V](v))
	})
}

// Keys returns the current keys in unspecified order.
func (m *ReadMap[K, V]) Keys() []K {
	keys := make([]K, 0, m.Len())
	m.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

func (m *ReadMap[K, V]) Stats() Stats {
	return Stats{
		MissReads: m.missReads.Load(),
		Rebuilds:  m.rebuilds.Load(),
		Writes:    m.writes.Load(),
	}
}

func (m *ReadMap[K, V]) current() *snapshot[K, V] {
	s := m.snap.Load()
	if s == nil || s.gen != m.gen.Load() {
		return nil
	}
	return s
}

func (m *ReadMap[K, V]) loadSlow(key K) (V, bool) {
	m.missReads.Add(1)

	// Only the caller that moves the counter back to zero rebuilds.
	if n := m.misses.Add(1); n >= m.missThreshold() && m.misses.CompareAndSwap(n, 0) {
		m.rebuild()
	}

	v, ok := m.base.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return cast[V](v), true
}

// rebuild copies the base store. The generation is read before copying, so a
// write that lands during the copy makes the new snapshot stale on arrival.
func (m *ReadMap[K, V]) rebuild() {
	gen := m.gen.Load()
	data := make(map[K]V)
	m.base.Range(func(k, v any) bool {
		data[k.(K)] = cast[V](v)
		return true
	})
	m.snap.Store(&snapshot[K, V]{gen: gen, data: data})
	m.rebuilds.Add(1)
}

func (m *ReadMap[K, V]) invalidate() {
	m.gen.Add(1)
	m.snap.Store(nil)
	m.misses.Store(0)
	m.writes.Add(1)
}

func (m *ReadMap[K, V]) missThreshold() int32 {
	if m.threshold > 0 {
		return m.threshold
	}
	return DefaultMissThreshold
}

// cast tolerates nil interface values stored for interface-typed V.
func cast[V any](x any) V {
	v, _ := x.(V)
	return v
}
