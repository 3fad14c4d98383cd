package models

import (
	"strings"
	"time"

	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
)

// Need is a recipient-posted request for food of a given type. A need is
// "open" until a match consumes it by setting MatchedDonationID; consumed
// needs are kept for history, never deleted by matching.
type Need struct {
	ID                id.NeedID      `json:"id"`
	RecipientID       id.UserID      `json:"recipient_id"`
	FoodType          string         `json:"food_type"`
	Quantity          string         `json:"quantity"`
	DropoffLocationID id.LocationID  `json:"dropoff_location_id"`
	ContactPhone      string         `json:"contact_phone"`
	Notes             string         `json:"notes,omitempty"`
	MatchedDonationID *id.DonationID `json:"matched_donation_id,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// IsOpen reports whether the need can still be matched.
func (n *Need) IsOpen() bool {
	return n.MatchedDonationID == nil
}

// NewNeed validates and constructs an open need.
func NewNeed(needID id.NeedID, recipientID id.UserID, foodType, quantity string, dropoffLocationID id.LocationID, contactPhone, notes string, now time.Time) (*Need, error) {
	foodType = strings.TrimSpace(foodType)
	quantity = strings.TrimSpace(quantity)
	contactPhone = strings.TrimSpace(contactPhone)
	if foodType == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "food type cannot be empty")
	}
	if quantity == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "quantity cannot be empty")
	}
	if dropoffLocationID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "dropoff location is required")
	}
	if contactPhone == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contact phone cannot be empty")
	}
	return &Need{
		ID:                needID,
		RecipientID:       recipientID,
		FoodType:          foodType,
		Quantity:          quantity,
		DropoffLocationID: dropoffLocationID,
		ContactPhone:      contactPhone,
		Notes:             strings.TrimSpace(notes),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}
