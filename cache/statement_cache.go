package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultStatementCacheSize bounds the number of rendered statements kept.
const DefaultStatementCacheSize = 1024

// StatementCache keeps rendered statement templates keyed by the shape of
// the query they came from. Unlike ReadMap it is bounded, since the key
// space grows with distinct query shapes rather than types.
type StatementCache[K comparable, V any] struct {
	lru *lru.Cache[K, V]
}

func NewStatementCache[K comparable, V any](size int) (*StatementCache[K, V], error) {
	if size <= 0 {
		size = DefaultStatementCacheSize
	}
	c, err := lru.New[K, V](size)
	if err != nil {
		return nil, fmt.Errorf("statement cache: %w", err)
	}
	return &StatementCache[K, V]{lru: c}, nil
}

func (s *StatementCache[K, V]) Get(key K) (V, bool) {
	return s.lru.Get(key)
}

func (s *StatementCache[K, V]) Add(key K, stmt V) {
	s.lru.Add(key, stmt)
}

// GetOrRender returns the cached statement or renders and caches a new one.
// A render error is not cached.
func (s *StatementCache[K, V]) GetOrRender(key K, render func() (V, error)) (V, error) {
	if stmt, ok := s.lru.Get(key); ok {
		return stmt, nil
	}
	stmt, err := render()
	if err != nil {
		var zero V
		return zero, err
	}
	s.lru.Add(key, stmt)
	return stmt, nil
}

func (s *StatementCache[K, V]) Len() int {
	return s.lru.Len()
}

func (s *StatementCache[K, V]) Purge() {
	s.lru.Purge()
}
