package store

import (
	"context"
	"time"

	"foodbridge/internal/delivery/models"
	id "foodbridge/pkg/domain"
)

// TransitionParams is one conditional step of the delivery lifecycle. The
// update applies only when the delivery is currently in From; the timeline
// event is written atomically with the status change.
type TransitionParams struct {
	DeliveryID id.DeliveryID
	From       models.Status
	To         models.Status
	Detail     string

	// AssignStaffID is set by the assign transition only. Every later
	// transition instead requires RequireStaffID to match the assignee.
	AssignStaffID  *id.UserID
	RequireStaffID *id.UserID

	ScheduledPickupAt  *time.Time
	ScheduledDropoffAt *time.Time
	DeliveredAt        *time.Time

	Now time.Time
}

// Store persists deliveries and their timelines. Transition failures are
// classified: sentinel.ErrNotFound for unknown ids or a staff mismatch,
// sentinel.ErrInvalidState when the delivery is not in the expected status.
type Store interface {
	Create(ctx context.Context, delivery *models.Delivery) error
	FindByID(ctx context.Context, deliveryID id.DeliveryID) (*models.Delivery, error)
	FindByDonation(ctx context.Context, donationID id.DonationID) (*models.Delivery, error)

	ListByStatus(ctx context.Context, status models.Status, page id.Page) ([]*models.Delivery, error)
	ListUnassigned(ctx context.Context, page id.Page) ([]*models.Delivery, error)
	ListByStaff(ctx context.Context, staffID id.UserID, deliveredOnly bool, page id.Page) ([]*models.Delivery, error)

	Transition(ctx context.Context, params TransitionParams) (*models.Delivery, error)

	// Timeline returns the delivery's transition events, oldest first.
	Timeline(ctx context.Context, deliveryID id.DeliveryID) ([]*models.TimelineEvent, error)
}
