package models

import (
	"time"

	"github.com/google/uuid"

	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
)

// Status is the strictly ordered delivery lifecycle. Transitions move exactly
// one step forward; there is no skipping and no re-entry.
type Status string

const (
	StatusPending          Status = "PENDING"
	StatusAssigned         Status = "ASSIGNED"
	StatusPickupScheduled  Status = "PICKUP_SCHEDULED"
	StatusPickedUp         Status = "PICKED_UP"
	StatusDropoffScheduled Status = "DROPOFF_SCHEDULED"
	StatusDroppedOff       Status = "DROPPED_OFF"
	StatusDelivered        Status = "DELIVERED"
)

var statusOrder = []Status{
	StatusPending,
	StatusAssigned,
	StatusPickupScheduled,
	StatusPickedUp,
	StatusDropoffScheduled,
	StatusDroppedOff,
	StatusDelivered,
}

// ParseStatus validates a raw status string against the closed set.
func ParseStatus(raw string) (Status, error) {
	for _, s := range statusOrder {
		if Status(raw) == s {
			return s, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown delivery status: "+raw)
}

// Rank returns the status position in the lifecycle, -1 for unknown.
func (s Status) Rank() int {
	for i, candidate := range statusOrder {
		if s == candidate {
			return i
		}
	}
	return -1
}

// Next returns the only legal successor, or "" for the terminal status.
func (s Status) Next() Status {
	rank := s.Rank()
	if rank < 0 || rank == len(statusOrder)-1 {
		return ""
	}
	return statusOrder[rank+1]
}

// IsTerminal reports whether the lifecycle has finished.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered
}

// Delivery tracks one donation's journey from pickup to dropoff. Created by a
// successful match commit, exactly one per donation.
type Delivery struct {
	ID                 id.DeliveryID `json:"id"`
	DonationID         id.DonationID `json:"donation_id"`
	PickupLocationID   id.LocationID `json:"pickup_location_id"`
	DropoffLocationID  id.LocationID `json:"dropoff_location_id"`
	RecipientPhone     string        `json:"recipient_phone"`
	Notes              string        `json:"notes,omitempty"`
	Status             Status        `json:"status"`
	StaffID            *id.UserID    `json:"staff_id,omitempty"`
	ScheduledPickupAt  *time.Time    `json:"scheduled_pickup_at,omitempty"`
	ScheduledDropoffAt *time.Time    `json:"scheduled_dropoff_at,omitempty"`
	DeliveredAt        *time.Time    `json:"delivered_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// TimelineEvent is one append-only record per transition, written atomically
// with the status change. A DELIVERED delivery therefore carries exactly six.
type TimelineEvent struct {
	ID         uuid.UUID     `json:"id"`
	DeliveryID id.DeliveryID `json:"delivery_id"`
	Status     Status        `json:"status"`
	Detail     string        `json:"detail,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// NewDelivery constructs the PENDING delivery a match commit inserts.
func NewDelivery(deliveryID id.DeliveryID, donationID id.DonationID, pickupLocationID, dropoffLocationID id.LocationID, recipientPhone, notes string, now time.Time) *Delivery {
	return &Delivery{
		ID:                deliveryID,
		DonationID:        donationID,
		PickupLocationID:  pickupLocationID,
		DropoffLocationID: dropoffLocationID,
		RecipientPhone:    recipientPhone,
		Notes:             notes,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
