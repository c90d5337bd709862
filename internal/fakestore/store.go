package fakestore

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/suyash-sneo/scriptstore/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu     sync.Mutex
	values map[string][]byte
	sets   map[string]map[string]struct{}
	fault  error
	writes int
	closed bool
}

var _ store.Store = (*Store)(nil)

// New returns a fresh in-memory store.
func New() *Store {
	return &Store{
		values: map[string][]byte{},
		sets:   map[string]map[string]struct{}{},
	}
}

// Fail makes every subsequent call return err until Fail(nil).
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = err
}

// Writes reports how many mutating commands have been applied.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Raw returns the stored bytes for key without going through the Store interface.
func (s *Store) Raw(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return string(v), ok
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return nil, false, s.fault
	}
	if _, ok := s.sets[key]; ok {
		return nil, false, wrongType(store.OpGet, key)
	}
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return s.fault
	}
	s.apply(store.Set(key, value))
	return nil
}

func (s *Store) Del(_ context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return 0, s.fault
	}
	var n int64
	for _, k := range keys {
		if s.apply(store.Del(k)).Changed {
			n++
		}
	}
	return n, nil
}

func (s *Store) Keys(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return nil, s.fault
	}
	var keys []string
	match := func(k string) error {
		ok, err := path.Match(pattern, k)
		if ok {
			keys = append(keys, k)
		}
		return err
	}
	for k := range s.values {
		if err := match(k); err != nil {
			return nil, err
		}
	}
	for k := range s.sets {
		if err := match(k); err != nil {
			return nil, err
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Members(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return nil, s.fault
	}
	members := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		members = append(members, m)
	}
	sort.Strings(members)
	return members, nil
}

func (s *Store) Pipeline(_ context.Context, ops ...store.Op) ([]store.Result, error) {
	return s.batch(ops, true)
}

func (s *Store) Tx(_ context.Context, ops ...store.Op) ([]store.Result, error) {
	return s.batch(ops, false)
}

func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// batch applies ops under one lock, so Pipeline and Tx are both atomic here.
// A GET against a set is a per-op error with perOp, and fails the batch
// before anything is applied otherwise.
func (s *Store) batch(ops []store.Op, perOp bool) ([]store.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return nil, s.fault
	}
	for _, op := range ops {
		if op.Kind < store.OpGet || op.Kind > store.OpSRem {
			return nil, fmt.Errorf("unsupported op %s", op.Kind)
		}
		if !perOp && s.holdsSet(op) {
			return nil, wrongType(op.Kind, op.Key)
		}
	}
	results := make([]store.Result, len(ops))
	for i, op := range ops {
		if s.holdsSet(op) {
			results[i] = store.Result{Err: wrongType(op.Kind, op.Key)}
			continue
		}
		results[i] = s.apply(op)
	}
	return results, nil
}

func (s *Store) holdsSet(op store.Op) bool {
	_, isSet := s.sets[op.Key]
	return op.Kind == store.OpGet && isSet
}

func wrongType(kind store.OpKind, key string) error {
	return fmt.Errorf("%s %s: %w", kind, key, store.ErrWrongType)
}

func (s *Store) apply(op store.Op) store.Result {
	switch op.Kind {
	case store.OpGet:
		v, ok := s.values[op.Key]
		if !ok {
			return store.Result{}
		}
		return store.Result{Value: append([]byte(nil), v...), Found: true}
	case store.OpSet:
		s.writes++
		s.values[op.Key] = append([]byte(nil), op.Value...)
		return store.Result{Changed: true}
	case store.OpSetNX:
		s.writes++
		if _, ok := s.values[op.Key]; ok {
			return store.Result{}
		}
		s.values[op.Key] = append([]byte(nil), op.Value...)
		return store.Result{Changed: true}
	case store.OpDel:
		s.writes++
		_, ok := s.values[op.Key]
		delete(s.values, op.Key)
		return store.Result{Changed: ok}
	case store.OpDelIfEquals:
		s.writes++
		v, ok := s.values[op.Key]
		if !ok || !bytes.Equal(v, op.Value) {
			return store.Result{}
		}
		delete(s.values, op.Key)
		return store.Result{Changed: true}
	case store.OpSAdd:
		s.writes++
		set, ok := s.sets[op.Key]
		if !ok {
			set = map[string]struct{}{}
			s.sets[op.Key] = set
		}
		if _, ok := set[op.Member]; ok {
			return store.Result{}
		}
		set[op.Member] = struct{}{}
		return store.Result{Changed: true}
	case store.OpSRem:
		s.writes++
		set := s.sets[op.Key]
		if _, ok := set[op.Member]; !ok {
			return store.Result{}
		}
		delete(set, op.Member)
		if len(set) == 0 {
			delete(s.sets, op.Key)
		}
		return store.Result{Changed: true}
	}
	return store.Result{}
}
