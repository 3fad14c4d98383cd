package models

import (
	"strings"
	"time"

	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
)

// Status is the closed enumeration for donation state. Every component that
// reads or writes donation state goes through this type; no layer carries its
// own status strings.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusMatched   Status = "MATCHED"
	StatusClaimed   Status = "CLAIMED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal reports whether no further matching can happen.
func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// ParseStatus validates a raw status string against the closed set.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusMatched, StatusClaimed, StatusExpired, StatusCancelled:
		return Status(raw), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown donation status: "+raw)
}

// Donation is a donor-posted surplus-food listing.
//
// Invariants:
//   - AvailableFrom <= AvailableTo
//   - Status transitions only PENDING -> {MATCHED, CLAIMED, EXPIRED, CANCELLED}
//   - RecipientID is set exactly when Status is MATCHED or CLAIMED
//   - At most one delivery ever exists per donation (enforced by the single
//     conditional claim plus the delivery store's donation uniqueness)
//   - Immutable once a delivery exists; FulfilledAt records terminal delivery
type Donation struct {
	ID            id.DonationID `json:"id"`
	DonorID       id.UserID     `json:"donor_id"`
	FoodType      string        `json:"food_type"`
	Quantity      string        `json:"quantity"`
	LocationID    id.LocationID `json:"location_id"`
	AvailableFrom time.Time     `json:"available_from"`
	AvailableTo   time.Time     `json:"available_to"`
	ExpiryDate    time.Time     `json:"expiry_date"`
	Notes         string        `json:"notes,omitempty"`
	Status        Status        `json:"status"`
	RecipientID   *id.UserID    `json:"recipient_id,omitempty"`
	FulfilledAt   *time.Time    `json:"fulfilled_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// IsExpired reports whether the donation can no longer be claimed. Both the
// hard expiry and the end of the availability window count.
func (d *Donation) IsExpired(now time.Time) bool {
	if !d.ExpiryDate.IsZero() && now.After(d.ExpiryDate) {
		return true
	}
	return !d.AvailableTo.IsZero() && now.After(d.AvailableTo)
}

// NewDonation validates and constructs a pending donation.
func NewDonation(donationID id.DonationID, donorID id.UserID, foodType, quantity string, locationID id.LocationID, availableFrom, availableTo, expiryDate time.Time, notes string, now time.Time) (*Donation, error) {
	foodType = strings.TrimSpace(foodType)
	quantity = strings.TrimSpace(quantity)
	if foodType == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "food type cannot be empty")
	}
	if quantity == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "quantity cannot be empty")
	}
	if locationID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "location is required")
	}
	if availableFrom.IsZero() || availableTo.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "availability window is required")
	}
	if availableTo.Before(availableFrom) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "available_to must not precede available_from")
	}
	if expiryDate.IsZero() {
		expiryDate = availableTo
	}
	return &Donation{
		ID:            donationID,
		DonorID:       donorID,
		FoodType:      foodType,
		Quantity:      quantity,
		LocationID:    locationID,
		AvailableFrom: availableFrom,
		AvailableTo:   availableTo,
		ExpiryDate:    expiryDate,
		Notes:         strings.TrimSpace(notes),
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
