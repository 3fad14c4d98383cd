package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"foodbridge/internal/delivery/models"
	id "foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
)

// InMemoryStore holds deliveries and timelines behind a single mutex. The
// transition is a check-and-set under the lock, matching the conditional
// UPDATE of the Postgres implementation.
type InMemoryStore struct {
	mu         sync.RWMutex
	deliveries map[id.DeliveryID]*models.Delivery
	byDonation map[id.DonationID]id.DeliveryID
	timelines  map[id.DeliveryID][]*models.TimelineEvent
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		deliveries: make(map[id.DeliveryID]*models.Delivery),
		byDonation: make(map[id.DonationID]id.DeliveryID),
		timelines:  make(map[id.DeliveryID][]*models.TimelineEvent),
	}
}

func (s *InMemoryStore) Create(_ context.Context, delivery *models.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.deliveries[delivery.ID]; exists {
		return sentinel.ErrConflict
	}
	// One delivery per donation, same guarantee as UNIQUE(donation_id).
	if _, exists := s.byDonation[delivery.DonationID]; exists {
		return sentinel.ErrConflict
	}
	cp := *delivery
	s.deliveries[delivery.ID] = &cp
	s.byDonation[delivery.DonationID] = delivery.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, deliveryID id.DeliveryID) (*models.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	delivery, ok := s.deliveries[deliveryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *delivery
	return &cp, nil
}

func (s *InMemoryStore) FindByDonation(_ context.Context, donationID id.DonationID) (*models.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deliveryID, ok := s.byDonation[donationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.deliveries[deliveryID]
	return &cp, nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, status models.Status, page id.Page) ([]*models.Delivery, error) {
	return s.listWhere(page, func(d *models.Delivery) bool {
		return d.Status == status
	})
}

func (s *InMemoryStore) ListUnassigned(_ context.Context, page id.Page) ([]*models.Delivery, error) {
	return s.listWhere(page, func(d *models.Delivery) bool {
		return d.StaffID == nil && d.Status == models.StatusPending
	})
}

func (s *InMemoryStore) ListByStaff(_ context.Context, staffID id.UserID, deliveredOnly bool, page id.Page) ([]*models.Delivery, error) {
	return s.listWhere(page, func(d *models.Delivery) bool {
		if d.StaffID == nil || *d.StaffID != staffID {
			return false
		}
		if deliveredOnly {
			return d.Status == models.StatusDelivered
		}
		return true
	})
}

func (s *InMemoryStore) Transition(_ context.Context, params TransitionParams) (*models.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delivery, ok := s.deliveries[params.DeliveryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if params.RequireStaffID != nil {
		if delivery.StaffID == nil || *delivery.StaffID != *params.RequireStaffID {
			return nil, sentinel.ErrNotFound
		}
	}
	if delivery.Status != params.From {
		return nil, sentinel.ErrInvalidState
	}
	if params.AssignStaffID != nil && delivery.StaffID != nil {
		return nil, sentinel.ErrInvalidState
	}

	delivery.Status = params.To
	delivery.UpdatedAt = params.Now
	if params.AssignStaffID != nil {
		staffID := *params.AssignStaffID
		delivery.StaffID = &staffID
	}
	if params.ScheduledPickupAt != nil {
		at := *params.ScheduledPickupAt
		delivery.ScheduledPickupAt = &at
	}
	if params.ScheduledDropoffAt != nil {
		at := *params.ScheduledDropoffAt
		delivery.ScheduledDropoffAt = &at
	}
	if params.DeliveredAt != nil {
		at := *params.DeliveredAt
		delivery.DeliveredAt = &at
	}

	s.timelines[delivery.ID] = append(s.timelines[delivery.ID], &models.TimelineEvent{
		ID:         uuid.New(),
		DeliveryID: delivery.ID,
		Status:     params.To,
		Detail:     params.Detail,
		CreatedAt:  params.Now,
	})

	cp := *delivery
	return &cp, nil
}

func (s *InMemoryStore) Timeline(_ context.Context, deliveryID id.DeliveryID) ([]*models.TimelineEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.deliveries[deliveryID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	events := s.timelines[deliveryID]
	out := make([]*models.TimelineEvent, 0, len(events))
	for _, e := range events {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemoryStore) listWhere(page id.Page, match func(*models.Delivery) bool) ([]*models.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found []*models.Delivery
	for _, d := range s.deliveries {
		if match(d) {
			cp := *d
			found = append(found, &cp)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].CreatedAt.Before(found[j].CreatedAt)
	})
	if page.Limit <= 0 {
		page = id.DefaultPage()
	}
	if page.Offset >= len(found) {
		return []*models.Delivery{}, nil
	}
	end := page.Offset + page.Limit
	if end > len(found) {
		end = len(found)
	}
	return found[page.Offset:end], nil
}
