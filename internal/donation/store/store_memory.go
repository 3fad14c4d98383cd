package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"foodbridge/internal/donation/models"
	id "foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
)

// InMemoryStore holds donations behind a single mutex. The conditional
// operations give the same linearizable check-and-set guarantees as the
// Postgres implementation.
type InMemoryStore struct {
	mu        sync.RWMutex
	donations map[id.DonationID]*models.Donation
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{donations: make(map[id.DonationID]*models.Donation)}
}

func (s *InMemoryStore) Create(_ context.Context, donation *models.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.donations[donation.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *donation
	s.donations[donation.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, donationID id.DonationID) (*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	donation, ok := s.donations[donationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *donation
	return &cp, nil
}

func (s *InMemoryStore) ListOpen(_ context.Context, now time.Time, page id.Page) ([]*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var open []*models.Donation
	for _, d := range s.donations {
		if d.Status == models.StatusPending && !d.IsExpired(now) {
			cp := *d
			open = append(open, &cp)
		}
	}
	sortByCreated(open)
	return paginate(open, page), nil
}

func (s *InMemoryStore) ListByDonor(_ context.Context, donorID id.UserID, page id.Page) ([]*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var owned []*models.Donation
	for _, d := range s.donations {
		if d.DonorID == donorID {
			cp := *d
			owned = append(owned, &cp)
		}
	}
	sortByCreated(owned)
	return paginate(owned, page), nil
}

func (s *InMemoryStore) ListByRecipient(_ context.Context, recipientID id.UserID, page id.Page) ([]*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var bound []*models.Donation
	for _, d := range s.donations {
		if d.RecipientID != nil && *d.RecipientID == recipientID {
			cp := *d
			bound = append(bound, &cp)
		}
	}
	sortByCreated(bound)
	return paginate(bound, page), nil
}

func (s *InMemoryStore) ClaimIfPending(_ context.Context, donationID id.DonationID, recipientID id.UserID, status models.Status, now time.Time) (*models.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	donation, ok := s.donations[donationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if donation.Status != models.StatusPending {
		return nil, sentinel.ErrConflict
	}
	if donation.IsExpired(now) {
		return nil, sentinel.ErrExpired
	}
	donation.Status = status
	donation.RecipientID = &recipientID
	donation.UpdatedAt = now
	cp := *donation
	return &cp, nil
}

func (s *InMemoryStore) ReleaseClaim(_ context.Context, donationID id.DonationID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	donation, ok := s.donations[donationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	donation.Status = models.StatusPending
	donation.RecipientID = nil
	donation.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) CancelIfPending(_ context.Context, donationID id.DonationID, donorID id.UserID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	donation, ok := s.donations[donationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if donation.DonorID != donorID {
		return sentinel.ErrNotFound
	}
	if donation.Status != models.StatusPending {
		return sentinel.ErrConflict
	}
	donation.Status = models.StatusCancelled
	donation.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) MarkFulfilled(_ context.Context, donationID id.DonationID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	donation, ok := s.donations[donationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	donation.FulfilledAt = &at
	donation.UpdatedAt = at
	return nil
}

func (s *InMemoryStore) ExpireStale(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := 0
	for _, d := range s.donations {
		if d.Status == models.StatusPending && d.IsExpired(now) {
			d.Status = models.StatusExpired
			d.UpdatedAt = now
			expired++
		}
	}
	return expired, nil
}

func sortByCreated(donations []*models.Donation) {
	sort.Slice(donations, func(i, j int) bool {
		return donations[i].CreatedAt.Before(donations[j].CreatedAt)
	})
}

func paginate(donations []*models.Donation, page id.Page) []*models.Donation {
	if page.Limit <= 0 {
		page = id.DefaultPage()
	}
	if page.Offset >= len(donations) {
		return []*models.Donation{}
	}
	end := page.Offset + page.Limit
	if end > len(donations) {
		end = len(donations)
	}
	return donations[page.Offset:end]
}
