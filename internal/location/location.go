// Package location holds the reusable geocoded points referenced by
// donations, needs, and deliveries. The registry is an external collaborator:
// the core validates references but only the admin surface creates entries.
package location

import (
	"strings"
	"time"

	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
)

// Location is a geocoded point with a human-readable label.
type Location struct {
	ID        id.LocationID `json:"id"`
	Label     string        `json:"label"`
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	CreatedAt time.Time     `json:"created_at"`
}

// New validates and constructs a Location.
func New(locationID id.LocationID, label string, lat, lng float64, now time.Time) (*Location, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "location label cannot be empty")
	}
	if lat < -90 || lat > 90 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "longitude must be between -180 and 180")
	}
	return &Location{
		ID:        locationID,
		Label:     label,
		Latitude:  lat,
		Longitude: lng,
		CreatedAt: now,
	}, nil
}
