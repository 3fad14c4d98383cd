package store

import (
	"context"

	"foodbridge/internal/notification/models"
	id "foodbridge/pkg/domain"
)

// Store persists notifications.
type Store interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByID(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error)

	// ListByUser returns the user's notifications, newest first.
	ListByUser(ctx context.Context, userID id.UserID, page id.Page) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID id.UserID) (int, error)

	// MarkRead flips the read flag. Re-marking an already read notification
	// succeeds without effect.
	MarkRead(ctx context.Context, notificationID id.NotificationID) error
}
