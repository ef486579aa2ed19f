package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/smithcommajoseph/async-transport/pkg/domain"
	"github.com/smithcommajoseph/async-transport/pkg/ports"
)

// InMemoryInvocationStore implements InvocationStore using an in-memory map
type InMemoryInvocationStore struct {
	invocations map[string]*domain.Invocation
	mu          sync.RWMutex
}

// NewInMemoryInvocationStore creates a new in-memory invocation store
func NewInMemoryInvocationStore() *InMemoryInvocationStore {
	return &InMemoryInvocationStore{
		invocations: make(map[string]*domain.Invocation),
	}
}

// Save stores a copy of inv
func (s *InMemoryInvocationStore) Save(ctx context.Context, inv *domain.Invocation) error {
	if inv == nil || inv.ID == "" {
		return fmt.Errorf("invocation ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *inv
	s.invocations[inv.ID] = &cp
	return nil
}

// Get returns a copy of the stored invocation
func (s *InMemoryInvocationStore) Get(ctx context.Context, id string) (*domain.Invocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invocations[id]
	if !ok {
		return nil, fmt.Errorf("invocation %s: %w", id, ports.ErrNotFound)
	}

	cp := *inv
	return &cp, nil
}

// List returns all invocations, oldest first
func (s *InMemoryInvocationStore) List(ctx context.Context) ([]*domain.Invocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Invocation, 0, len(s.invocations))
	for _, inv := range s.invocations {
		cp := *inv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})

	return out, nil
}

// Delete removes an invocation
func (s *InMemoryInvocationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.invocations, id)
	return nil
}
