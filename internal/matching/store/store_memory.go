package store

import (
	"context"
	"fmt"

	deliverymodels "foodbridge/internal/delivery/models"
	deliverystore "foodbridge/internal/delivery/store"
	donationstore "foodbridge/internal/donation/store"
	needstore "foodbridge/internal/need/store"
	id "foodbridge/pkg/domain"
)

// InMemoryCommitter commits a match against the in-memory stores. The
// donation claim is the exclusivity gate: it is the first conditional step,
// so losers of a race fail there and touch nothing else. Later failures roll
// the earlier steps back by compensation.
type InMemoryCommitter struct {
	donations  donationstore.Store
	needs      needstore.Store
	deliveries deliverystore.Store
}

func NewInMemoryCommitter(donations donationstore.Store, needs needstore.Store, deliveries deliverystore.Store) *InMemoryCommitter {
	return &InMemoryCommitter{donations: donations, needs: needs, deliveries: deliveries}
}

func (c *InMemoryCommitter) CommitMatch(ctx context.Context, params CommitParams) (*CommitResult, error) {
	donation, err := c.donations.ClaimIfPending(ctx, params.DonationID, params.RecipientID, params.TargetStatus, params.Now)
	if err != nil {
		return nil, err
	}

	if params.NeedID != nil {
		if _, err := c.needs.ConsumeIfOpen(ctx, *params.NeedID, params.DonationID, params.Now); err != nil {
			c.releaseClaim(ctx, params)
			return nil, err
		}
	}

	delivery := deliverymodels.NewDelivery(
		id.NewDeliveryID(), params.DonationID,
		donation.LocationID, params.DropoffLocationID,
		params.RecipientPhone, params.Notes, params.Now,
	)
	if err := c.deliveries.Create(ctx, delivery); err != nil {
		if params.NeedID != nil {
			if releaseErr := c.needs.Release(ctx, *params.NeedID, params.Now); releaseErr != nil {
				return nil, fmt.Errorf("create delivery: %w (need release also failed: %v)", err, releaseErr)
			}
		}
		c.releaseClaim(ctx, params)
		return nil, fmt.Errorf("create delivery: %w", err)
	}

	return &CommitResult{Donation: donation, Delivery: delivery}, nil
}

func (c *InMemoryCommitter) releaseClaim(ctx context.Context, params CommitParams) {
	// Best effort; the donation was just claimed by us, so a failure here
	// means the store itself is broken.
	_ = c.donations.ReleaseClaim(ctx, params.DonationID, params.Now)
}
