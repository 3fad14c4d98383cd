package location

import (
	"context"
	"sync"

	id "foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
)

// InMemoryStore is the test and local-demo implementation.
type InMemoryStore struct {
	mu        sync.RWMutex
	locations map[id.LocationID]*Location
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{locations: make(map[id.LocationID]*Location)}
}

func (s *InMemoryStore) Save(_ context.Context, loc *Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *loc
	s.locations[loc.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, locationID id.LocationID) (*Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.locations[locationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *loc
	return &cp, nil
}

func (s *InMemoryStore) Exists(_ context.Context, locationID id.LocationID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.locations[locationID]
	return ok, nil
}
