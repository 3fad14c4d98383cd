package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"foodbridge/internal/notification/models"
	"foodbridge/internal/notification/store"
	"foodbridge/internal/platform/metrics"
	"foodbridge/internal/platform/redis"
	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/sentinel"
)

const unreadCacheTTL = 5 * time.Minute

// Service owns the notification dispatcher: domain services emit through it,
// clients poll through it. The unread count is served from a Redis counter
// cache when configured and recomputed from the store on miss.
type Service struct {
	notifications store.Store
	cache         *redis.Client
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(s *Service)

// WithCache enables the Redis unread-count cache. A nil client is cache-off.
func WithCache(cache *redis.Client) Option {
	return func(s *Service) { s.cache = cache }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(notifications store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{notifications: notifications, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit creates an unread notification for the user and returns it.
func (s *Service) Emit(ctx context.Context, userID id.UserID, kind models.Kind, message string, meta models.Meta) (*models.Notification, error) {
	notification := &models.Notification{
		ID:        id.NewNotificationID(),
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		Meta:      meta,
		CreatedAt: time.Now(),
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create notification")
	}
	if s.metrics != nil {
		s.metrics.NotificationsEmitted.Inc()
	}
	s.invalidateUnread(ctx, userID)
	return notification, nil
}

// Get returns a single notification.
func (s *Service) Get(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	notification, err := s.notifications.FindByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load notification")
	}
	return notification, nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID id.UserID, page id.Page) ([]*models.Notification, error) {
	notifications, err := s.notifications.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return notifications, nil
}

// UnreadCount returns how many of the user's notifications are unread.
func (s *Service) UnreadCount(ctx context.Context, userID id.UserID) (int, error) {
	if cached, ok := s.cachedUnread(ctx, userID); ok {
		return cached, nil
	}
	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count unread notifications")
	}
	s.storeUnread(ctx, userID, count)
	return count, nil
}

// MarkRead marks the user's own notification read. Re-reading is a no-op.
func (s *Service) MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error {
	notification, err := s.Get(ctx, notificationID)
	if err != nil {
		return err
	}
	// Notifications are private; a foreign id reads as unknown.
	if notification.UserID != userID {
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	if notification.Read {
		return nil
	}
	if err := s.notifications.MarkRead(ctx, notificationID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	s.invalidateUnread(ctx, userID)
	return nil
}

func unreadCacheKey(userID id.UserID) string {
	return "notifications:unread:" + userID.String()
}

func (s *Service) cachedUnread(ctx context.Context, userID id.UserID) (int, bool) {
	if s.cache == nil {
		return 0, false
	}
	raw, err := s.cache.Get(ctx, unreadCacheKey(userID)).Result()
	if err != nil {
		return 0, false
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return count, true
}

func (s *Service) storeUnread(ctx context.Context, userID id.UserID, count int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, unreadCacheKey(userID), strconv.Itoa(count), unreadCacheTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "unread cache set failed", "error", err)
	}
}

func (s *Service) invalidateUnread(ctx context.Context, userID id.UserID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, unreadCacheKey(userID)).Err(); err != nil {
		s.logger.WarnContext(ctx, "unread cache invalidation failed", "error", err)
	}
}
