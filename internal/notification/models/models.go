package models

import (
	"time"

	id "foodbridge/pkg/domain"
)

// Kind classifies a notification so clients can render and act on it. The
// match_proposal kind doubles as the proposal record itself: accepting or
// rejecting a proposal references the notification.
type Kind string

const (
	KindMatchProposal   Kind = "match_proposal"
	KindDonationMatched Kind = "donation_matched"
	KindDonationClaimed Kind = "donation_claimed"
	KindPickupScheduled Kind = "pickup_scheduled"
	KindPickedUp        Kind = "picked_up"
	KindDelivered       Kind = "delivered"
)

// Meta links a notification back to the entities it talks about. Stored as a
// JSON column; absent ids are omitted.
type Meta struct {
	NeedID     *id.NeedID     `json:"need_id,omitempty"`
	DonationID *id.DonationID `json:"donation_id,omitempty"`
	DeliveryID *id.DeliveryID `json:"delivery_id,omitempty"`
}

// Notification is an in-app message for one user. Append-only; marking read
// is the only mutation and it never deletes.
type Notification struct {
	ID        id.NotificationID `json:"id"`
	UserID    id.UserID         `json:"user_id"`
	Kind      Kind              `json:"kind"`
	Message   string            `json:"message"`
	Meta      Meta              `json:"meta"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
}
