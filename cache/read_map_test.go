package cache

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestReadMapLoadStore(t *testing.T) {
	m := NewReadMap[string, int]()

	_, ok := m.Load("missing")
	assert.False(t, ok)

	m.Store("a", 1)
	v, ok := m.Load("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	m.Store("a", 2)
	v, _ = m.Load("a")
	assert.Equal(t, 2, v)

	assert.True(t, m.TryAdd("b", 3))
	assert.False(t, m.TryAdd("b", 4))
	v, _ = m.Load("b")
	assert.Equal(t, 3, v)

	assert.Equal(t, 2, m.Len())
	assert.ElementsMatch(t, []string{"a", "b"}, m.Keys())

	assert.True(t, m.Delete("a"))
	assert.False(t, m.Delete("a"))
	_, ok = m.Load("a")
	assert.False(t, ok)

	m.Clear()
	assert.Equal(t, 0, m.Len())
}

func TestReadMapZeroValue(t *testing.T) {
	var m ReadMap[int, string]
	m.Store(1, "one")
	for i := 0; i < DefaultMissThreshold+1; i++ {
		v, ok := m.Load(1)
		require.True(t, ok)
		assert.Equal(t, "one", v)
	}
	assert.Equal(t, uint64(1), m.Stats().Rebuilds)
}

func TestReadMapSnapshotConvergence(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
	}{
		{name: "Default", threshold: 0},
		{name: "One", threshold: 1},
		{name: "Tuned", threshold: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewReadMap[string, int](WithMissThreshold(tt.threshold))
			want := tt.threshold
			if want < 1 {
				want = DefaultMissThreshold
			}

			m.Store("k", 1)
			for i := 0; i < want-1; i++ {
				_, _ = m.Load("k")
			}
			assert.Equal(t, uint64(0), m.Stats().Rebuilds, "rebuilt before threshold")

			_, _ = m.Load("k")
			assert.Equal(t, uint64(1), m.Stats().Rebuilds)

			// Served from the snapshot from here on.
			before := m.Stats().MissReads
			for i := 0; i < 100; i++ {
				v, ok := m.Load("k")
				require.True(t, ok)
				assert.Equal(t, 1, v)
			}
			_, ok := m.Load("absent")
			assert.False(t, ok)
			assert.Equal(t, before, m.Stats().MissReads)
			assert.Equal(t, uint64(1), m.Stats().Rebuilds)
		})
	}
}

func TestReadMapMissThresholdBounds(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int32
	}{
		{"Negative", -3, DefaultMissThreshold},
		{"InRange", 40, 40},
		{"MaxInt32", math.MaxInt32, math.MaxInt32},
		{"MaxInt", math.MaxInt, math.MaxInt32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewReadMap[string, int](WithMissThreshold(tt.in))
			assert.Equal(t, tt.want, m.missThreshold())
		})
	}
}

func TestReadMapWriteInvalidatesSnapshot(t *testing.T) {
	m := NewReadMap[string, int](WithMissThreshold(2))
	m.Store("a", 1)
	_, _ = m.Load("a")
	_, _ = m.Load("a")
	require.Equal(t, uint64(1), m.Stats().Rebuilds)

	m.Store("a", 2)
	m.Store("b", 3)

	v, ok := m.Load("a")
	require.True(t, ok)
	assert.Equal(t, 2, v, "stale snapshot served after overwrite")
	v, ok = m.Load("b")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	assert.Equal(t, uint64(2), m.Stats().Rebuilds)
	snapA, _ := m.Load("a")
	assert.Equal(t, 2, snapA)
}

func TestReadMapStaleRebuildIsNotServed(t *testing.T) {
	m := NewReadMap[string, int](WithMissThreshold(1))
	m.Store("a", 1)

	// Simulate a rebuild that copied the store before a write landed.
	stale := &snapshot[string, int]{gen: m.gen.Load(), data: map[string]int{"a": 1}}
	m.Store("a", 2)
	m.snap.Store(stale)

	v, ok := m.Load("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestReadMapLoadOrCompute(t *testing.T) {
	m := NewReadMap[string, string]()
	calls := 0
	build := func(k string) (string, error) {
		calls++
		return "v:" + k, nil
	}

	v, err := m.LoadOrCompute("x", build)
	require.NoError(t, err)
	assert.Equal(t, "v:x", v)

	v, err = m.LoadOrCompute("x", build)
	require.NoError(t, err)
	assert.Equal(t, "v:x", v)
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), m.Stats().Writes)
}

func TestReadMapLoadOrComputeError(t *testing.T) {
	m := NewReadMap[string, int]()
	boom := errors.New("boom")

	_, err := m.LoadOrCompute("x", func(string) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, uint64(0), m.Stats().Writes)

	m.Store("y", 1)
	_, err = m.LoadOrCompute("x", func(string) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	v, ok := m.Load("y")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestReadMapCompareAndDelete(t *testing.T) {
	type box struct{ n int }
	m := NewReadMap[string, *box]()
	first, second := &box{1}, &box{2}

	m.Store("k", first)
	assert.False(t, m.CompareAndDelete("k", second))
	assert.True(t, m.CompareAndDelete("k", first))
	_, ok := m.Load("k")
	assert.False(t, ok)
}

func TestReadMapConcurrentLoadOrCompute(t *testing.T) {
	const workers = 64
	type value struct{ id int64 }

	m := NewReadMap[string, *value]()
	var seq atomic.Int64
	results := make([]*value, workers)

	start := make(chan struct{})
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			<-start
			v, err := m.LoadOrCompute("shared", func(string) (*value, error) {
				return &value{id: seq.Add(1)}, nil
			})
			results[i] = v
			return err
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	winner, ok := m.Load("shared")
	require.True(t, ok)
	for i, got := range results {
		assert.Same(t, winner, got, "worker %d observed a losing build", i)
	}
	assert.Equal(t, 1, m.Len())
}

func TestReadMapConcurrentReadersAndWriters(t *testing.T) {
	m := NewReadMap[int, int](WithMissThreshold(3))
	const keys = 32

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for k := w; k < keys; k += 4 {
				m.Store(k, k*10)
			}
		}(w)
	}
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				if v, ok := m.Load(i % keys); ok {
					assert.Equal(t, (i%keys)*10, v)
				}
			}
		}()
	}
	wg.Wait()

	for k := 0; k < keys; k++ {
		v, ok := m.Load(k)
		require.True(t, ok, fmt.Sprintf("key %d lost", k))
		assert.Equal(t, k*10, v)
	}
}

func BenchmarkReadMapLoad(b *testing.B) {
	m := NewReadMap[int, int]()
	for i := 0; i < 64; i++ {
		m.Store(i, i)
	}
	for i := 0; i < DefaultMissThreshold; i++ {
		m.Load(0)
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Load(i & 63)
			i++
		}
	})
}

func BenchmarkSyncMapLoad(b *testing.B) {
	var m sync.Map
	for i := 0; i < 64; i++ {
		m.Store(i, i)
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Load(i & 63)
			i++
		}
	})
}
