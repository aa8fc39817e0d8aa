package queue

import (
	"context"
	"slices"
	"sync"

	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

// ResultStore persists task results. Implementations are tenant scoped: every
// call operates on the schema active in ctx.
type ResultStore interface {
	// SaveResult inserts or replaces the result with the same ID.
	SaveResult(ctx context.Context, r *Result) error

	// GetResult returns nil, nil when no result exists.
	GetResult(ctx context.Context, id string) (*Result, error)

	// GetGroup returns the group's results ordered by completion.
	// Failed results are included only when failures is true.
	GetGroup(ctx context.Context, group string, failures bool) ([]*Result, error)

	// CountGroup returns the number of results in the group, or the number
	// of failed results when failures is true.
	CountGroup(ctx context.Context, group string, failures bool) (int, error)

	// DeleteGroup removes the group's results when tasks is true, otherwise it
	// only detaches them from the group. It returns the affected count.
	DeleteGroup(ctx context.Context, group string, tasks bool) (int, error)

	// DeleteResult removes a single result. Missing results are not an error.
	DeleteResult(ctx context.Context, id string) error
}

// MemoryResultStore implements ResultStore in memory, one partition per schema.
type MemoryResultStore struct {
	mu      sync.RWMutex
	schemas map[string]*resultPartition
}

type resultPartition struct {
	byID  map[string]*Result
	order []string
}

// NewMemoryResultStore creates an empty store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{schemas: make(map[string]*resultPartition)}
}

func (s *MemoryResultStore) partition(ctx context.Context, create bool) *resultPartition {
	schema, _ := tenant.SchemaFromContext(ctx)
	p, ok := s.schemas[schema]
	if !ok && create {
		p = &resultPartition{byID: make(map[string]*Result)}
		s.schemas[schema] = p
	}
	return p
}

// SaveResult implements ResultStore
func (s *MemoryResultStore) SaveResult(ctx context.Context, r *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.partition(ctx, true)
	if _, exists := p.byID[r.ID]; !exists {
		p.order = append(p.order, r.ID)
	}
	// Clone to prevent external modifications
	rc := *r
	p.byID[r.ID] = &rc
	return nil
}

// GetResult implements ResultStore
func (s *MemoryResultStore) GetResult(ctx context.Context, id string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.partition(ctx, false)
	if p == nil {
		return nil, nil
	}
	r, ok := p.byID[id]
	if !ok {
		return nil, nil
	}
	rc := *r
	return &rc, nil
}

// GetGroup implements ResultStore
func (s *MemoryResultStore) GetGroup(ctx context.Context, group string, failures bool) ([]*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.partition(ctx, false)
	if p == nil || group == "" {
		return nil, nil
	}

	var out []*Result
	for _, id := range p.order {
		r := p.byID[id]
		if r.Group != group || (!failures && !r.Success) {
			continue
		}
		rc := *r
		out = append(out, &rc)
	}
	return out, nil
}

// CountGroup implements ResultStore
func (s *MemoryResultStore) CountGroup(ctx context.Context, group string, failures bool) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.partition(ctx, false)
	if p == nil || group == "" {
		return 0, nil
	}

	n := 0
	for _, r := range p.byID {
		if r.Group == group && (!failures || !r.Success) {
			n++
		}
	}
	return n, nil
}

// DeleteGroup implements ResultStore
func (s *MemoryResultStore) DeleteGroup(ctx context.Context, group string, tasks bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.partition(ctx, false)
	if p == nil || group == "" {
		return 0, nil
	}

	n := 0
	for id, r := range p.byID {
		if r.Group != group {
			continue
		}
		n++
		if tasks {
			delete(p.byID, id)
		} else {
			r.Group = ""
		}
	}
	if tasks {
		p.order = slices.DeleteFunc(p.order, func(id string) bool {
			_, ok := p.byID[id]
			return !ok
		})
	}
	return n, nil
}

// DeleteResult implements ResultStore
func (s *MemoryResultStore) DeleteResult(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.partition(ctx, false)
	if p == nil {
		return nil
	}
	if _, ok := p.byID[id]; ok {
		delete(p.byID, id)
		p.order = slices.DeleteFunc(p.order, func(v string) bool { return v == id })
	}
	return nil
}
