package repository

import (
	"context"
	"sync"

	"github.com/okian/cragboard/internal/domain/model"
)

// MemStore keeps results in memory. Results are lost on restart.
type MemStore struct {
	mu      sync.RWMutex
	results []model.Result
	byKey   map[model.Key]int
	closed  bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(_ ...Option) *MemStore {
	return &MemStore{byKey: make(map[model.Key]int)}
}

func (s *MemStore) FindByKey(_ context.Context, climber, route string) (model.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Result{}, ErrClosed
	}
	i, ok := s.byKey[model.Key{Climber: climber, Route: route}]
	if !ok {
		return model.Result{}, ErrNotFound
	}
	return s.results[i], nil
}

func (s *MemStore) Append(_ context.Context, r model.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.byKey[r.Key()]; ok {
		return ErrDuplicate
	}
	s.byKey[r.Key()] = len(s.results)
	s.results = append(s.results, r)
	return nil
}

func (s *MemStore) ListAll(_ context.Context) ([]model.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]model.Result, len(s.results))
	copy(out, s.results)
	return out, nil
}

func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
