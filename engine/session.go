package engine

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/Konsultn-Engineering/enspec/evaluator"
	"github.com/Konsultn-Engineering/enspec/query"
	"github.com/Konsultn-Engineering/enspec/specification"
)

// Session runs queries and, for tracking queries, keeps one instance per
// entity row for its lifetime. It is safe for concurrent use.
type Session struct {
	engine *Engine

	mu       sync.Mutex
	identity map[identityKey]reflect.Value
}

func newSession(e *Engine) *Session {
	return &Session{engine: e, identity: make(map[identityKey]reflect.Value)}
}

// Find executes q and stores the root entities in dest, which must be a
// pointer to a slice of q's element type.
func (s *Session) Find(ctx context.Context, q query.Queryable, dest any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() || dv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("engine: Find expects a pointer to a slice, got %T", dest)
	}
	if want := q.ElementType(); dv.Elem().Type().Elem() != want {
		return fmt.Errorf("engine: Find into %s, query returns %v", dv.Elem().Type(), want)
	}

	h := newHydrator(s, q.Query().Tracking())
	if err := s.engine.run(ctx, q, h); err != nil {
		return err
	}

	out := reflect.MakeSlice(dv.Elem().Type(), len(h.roots), len(h.roots))
	for i, r := range h.roots {
		out.Index(i).Set(r)
	}
	dv.Elem().Set(out)
	return nil
}

// Tracked reports how many entities the session tracks.
func (s *Session) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.identity)
}

// Clear forgets every tracked entity.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.identity)
}

func (s *Session) lookup(k identityKey) (reflect.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.identity[k]
	return v, ok
}

// track records obj unless another query tracked the same row first, in
// which case the earlier instance wins.
func (s *Session) track(k identityKey, obj reflect.Value) reflect.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.identity[k]; ok {
		return v
	}
	s.identity[k] = obj
	return obj
}

// List executes set and returns its root entities.
func List[T any](ctx context.Context, s *Session, set query.Set[T]) ([]T, error) {
	var out []T
	if err := s.Find(ctx, set, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindBySpec applies spec to a fresh query over T with the engine's
// pipeline and executes the result.
func FindBySpec[T any](ctx context.Context, s *Session, spec *specification.Specification) ([]T, error) {
	set, err := evaluator.WithSpecification(s.engine.pipeline, query.From[T](), spec)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return List(ctx, s, set)
}
