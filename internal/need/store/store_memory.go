package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"foodbridge/internal/need/models"
	id "foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
)

// InMemoryStore holds needs behind a single mutex, mirroring the conditional
// guarantees of the Postgres implementation.
type InMemoryStore struct {
	mu    sync.RWMutex
	needs map[id.NeedID]*models.Need
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{needs: make(map[id.NeedID]*models.Need)}
}

func (s *InMemoryStore) Create(_ context.Context, need *models.Need) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.needs[need.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *need
	s.needs[need.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, needID id.NeedID) (*models.Need, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	need, ok := s.needs[needID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *need
	return &cp, nil
}

func (s *InMemoryStore) ListByRecipient(_ context.Context, recipientID id.UserID, page id.Page) ([]*models.Need, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var owned []*models.Need
	for _, n := range s.needs {
		if n.RecipientID == recipientID {
			cp := *n
			owned = append(owned, &cp)
		}
	}
	sortByCreated(owned)
	return paginate(owned, page), nil
}

func (s *InMemoryStore) ListOpenByFoodType(_ context.Context, foodType string, page id.Page) ([]*models.Need, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var open []*models.Need
	for _, n := range s.needs {
		if n.IsOpen() && strings.EqualFold(n.FoodType, foodType) {
			cp := *n
			open = append(open, &cp)
		}
	}
	sortByCreated(open)
	return paginate(open, page), nil
}

func (s *InMemoryStore) UpdateIfOpen(_ context.Context, needID id.NeedID, recipientID id.UserID, params UpdateParams, now time.Time) (*models.Need, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	need, ok := s.needs[needID]
	if !ok || need.RecipientID != recipientID {
		return nil, sentinel.ErrNotFound
	}
	if !need.IsOpen() {
		return nil, sentinel.ErrConflict
	}
	need.FoodType = params.FoodType
	need.Quantity = params.Quantity
	need.DropoffLocationID = params.DropoffLocationID
	need.ContactPhone = params.ContactPhone
	need.Notes = params.Notes
	need.UpdatedAt = now
	cp := *need
	return &cp, nil
}

func (s *InMemoryStore) DeleteIfOpen(_ context.Context, needID id.NeedID, recipientID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	need, ok := s.needs[needID]
	if !ok || need.RecipientID != recipientID {
		return sentinel.ErrNotFound
	}
	if !need.IsOpen() {
		return sentinel.ErrConflict
	}
	delete(s.needs, needID)
	return nil
}

func (s *InMemoryStore) ConsumeIfOpen(_ context.Context, needID id.NeedID, donationID id.DonationID, now time.Time) (*models.Need, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	need, ok := s.needs[needID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !need.IsOpen() {
		return nil, sentinel.ErrConflict
	}
	need.MatchedDonationID = &donationID
	need.UpdatedAt = now
	cp := *need
	return &cp, nil
}

func (s *InMemoryStore) Release(_ context.Context, needID id.NeedID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	need, ok := s.needs[needID]
	if !ok {
		return sentinel.ErrNotFound
	}
	need.MatchedDonationID = nil
	need.UpdatedAt = now
	return nil
}

func sortByCreated(needs []*models.Need) {
	sort.Slice(needs, func(i, j int) bool {
		return needs[i].CreatedAt.Before(needs[j].CreatedAt)
	})
}

func paginate(needs []*models.Need, page id.Page) []*models.Need {
	if page.Limit <= 0 {
		page = id.DefaultPage()
	}
	if page.Offset >= len(needs) {
		return []*models.Need{}
	}
	end := page.Offset + page.Limit
	if end > len(needs) {
		end = len(needs)
	}
	return needs[page.Offset:end]
}
