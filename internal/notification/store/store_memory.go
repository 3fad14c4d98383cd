package store

import (
	"context"
	"sort"
	"sync"

	"foodbridge/internal/notification/models"
	id "foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
)

// InMemoryStore holds notifications behind a single mutex.
type InMemoryStore struct {
	mu            sync.RWMutex
	notifications map[id.NotificationID]*models.Notification
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{notifications: make(map[id.NotificationID]*models.Notification)}
}

func (s *InMemoryStore) Create(_ context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notifications[notification.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *notification
	s.notifications[notification.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notification, ok := s.notifications[notificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *notification
	return &cp, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID, page id.Page) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var owned []*models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			cp := *n
			owned = append(owned, &cp)
		}
	}
	// Newest first, unlike the FIFO listings elsewhere.
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	if page.Limit <= 0 {
		page = id.DefaultPage()
	}
	if page.Offset >= len(owned) {
		return []*models.Notification{}, nil
	}
	end := page.Offset + page.Limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[page.Offset:end], nil
}

func (s *InMemoryStore) CountUnread(_ context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, notificationID id.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	notification, ok := s.notifications[notificationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	notification.Read = true
	return nil
}
