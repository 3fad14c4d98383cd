package location

import (
	"context"

	id "foodbridge/pkg/domain"
)

// Store persists locations. Read-mostly; no conditional updates needed.
type Store interface {
	Save(ctx context.Context, loc *Location) error
	FindByID(ctx context.Context, locationID id.LocationID) (*Location, error)
	Exists(ctx context.Context, locationID id.LocationID) (bool, error)
}
