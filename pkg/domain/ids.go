// Package domain holds typed identifiers shared across slices. Distinct types
// keep a DonationID from ever being passed where a DeliveryID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "foodbridge/pkg/domain-errors"
)

type (
	UserID         uuid.UUID
	DonationID     uuid.UUID
	NeedID         uuid.UUID
	DeliveryID     uuid.UUID
	LocationID     uuid.UUID
	NotificationID uuid.UUID
)

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id DonationID) String() string     { return uuid.UUID(id).String() }
func (id NeedID) String() string         { return uuid.UUID(id).String() }
func (id DeliveryID) String() string     { return uuid.UUID(id).String() }
func (id LocationID) String() string     { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DonationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id NeedID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }
func (id LocationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// NewDonationID and friends mint fresh identifiers.
func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewDonationID() DonationID         { return DonationID(uuid.New()) }
func NewNeedID() NeedID                 { return NeedID(uuid.New()) }
func NewDeliveryID() DeliveryID         { return DeliveryID(uuid.New()) }
func NewLocationID() LocationID         { return LocationID(uuid.New()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

// parseUUID enforces the parsing invariant at trust boundaries: IDs must be
// valid, non-nil UUIDs.
func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid uuid")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil uuid")
	}
	return parsed, nil
}

func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	return UserID(parsed), err
}

func ParseDonationID(raw string) (DonationID, error) {
	parsed, err := parseUUID(raw)
	return DonationID(parsed), err
}

func ParseNeedID(raw string) (NeedID, error) {
	parsed, err := parseUUID(raw)
	return NeedID(parsed), err
}

func ParseDeliveryID(raw string) (DeliveryID, error) {
	parsed, err := parseUUID(raw)
	return DeliveryID(parsed), err
}

func ParseLocationID(raw string) (LocationID, error) {
	parsed, err := parseUUID(raw)
	return LocationID(parsed), err
}

func ParseNotificationID(raw string) (NotificationID, error) {
	parsed, err := parseUUID(raw)
	return NotificationID(parsed), err
}
