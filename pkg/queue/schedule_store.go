package queue

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

// ScheduleStore persists schedule entries. Like ResultStore it operates on
// the schema active in ctx.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, e *ScheduleEntry) error

	// DueSchedules returns entries with NextRun at or before now that still have repeats left.
	DueSchedules(ctx context.Context, now time.Time) ([]*ScheduleEntry, error)

	UpdateSchedule(ctx context.Context, e *ScheduleEntry) error
	DeleteSchedule(ctx context.Context, id string) error
}

// MemoryScheduleStore implements ScheduleStore in memory, one partition per schema.
type MemoryScheduleStore struct {
	mu      sync.RWMutex
	schemas map[string]map[string]*ScheduleEntry
}

// NewMemoryScheduleStore creates an empty store.
func NewMemoryScheduleStore() *MemoryScheduleStore {
	return &MemoryScheduleStore{schemas: make(map[string]map[string]*ScheduleEntry)}
}

// CreateSchedule implements ScheduleStore
func (s *MemoryScheduleStore) CreateSchedule(ctx context.Context, e *ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema, _ := tenant.SchemaFromContext(ctx)
	p, ok := s.schemas[schema]
	if !ok {
		p = make(map[string]*ScheduleEntry)
		s.schemas[schema] = p
	}
	ec := *e
	p[e.ID] = &ec
	return nil
}

// DueSchedules implements ScheduleStore
func (s *MemoryScheduleStore) DueSchedules(ctx context.Context, now time.Time) ([]*ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schema, _ := tenant.SchemaFromContext(ctx)
	var due []*ScheduleEntry
	for _, e := range s.schemas[schema] {
		if e.Repeats != 0 && !e.NextRun.After(now) {
			ec := *e
			due = append(due, &ec)
		}
	}
	slices.SortFunc(due, func(a, b *ScheduleEntry) int {
		return a.NextRun.Compare(b.NextRun)
	})
	return due, nil
}

// UpdateSchedule implements ScheduleStore
func (s *MemoryScheduleStore) UpdateSchedule(ctx context.Context, e *ScheduleEntry) error {
	return s.CreateSchedule(ctx, e)
}

// DeleteSchedule implements ScheduleStore
func (s *MemoryScheduleStore) DeleteSchedule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema, _ := tenant.SchemaFromContext(ctx)
	delete(s.schemas[schema], id)
	return nil
}
