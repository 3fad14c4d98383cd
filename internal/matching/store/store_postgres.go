package store

import (
	"context"
	"database/sql"
	"fmt"

	deliverymodels "foodbridge/internal/delivery/models"
	deliverystore "foodbridge/internal/delivery/store"
	donationstore "foodbridge/internal/donation/store"
	needstore "foodbridge/internal/need/store"
	id "foodbridge/pkg/domain"
)

// PostgresCommitter commits a match in a single database transaction. The
// conditional claim UPDATE decides the race; a serialization failure or any
// later error rolls everything back and the donation stays PENDING.
type PostgresCommitter struct {
	db *sql.DB
}

func NewPostgresCommitter(db *sql.DB) *PostgresCommitter {
	return &PostgresCommitter{db: db}
}

func (c *PostgresCommitter) CommitMatch(ctx context.Context, params CommitParams) (*CommitResult, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin match commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	donation, err := donationstore.ClaimIfPendingTx(ctx, tx, params.DonationID, params.RecipientID, params.TargetStatus, params.Now)
	if err != nil {
		return nil, err
	}

	if params.NeedID != nil {
		if _, err := needstore.ConsumeIfOpenTx(ctx, tx, *params.NeedID, params.DonationID, params.Now); err != nil {
			return nil, err
		}
	}

	delivery := deliverymodels.NewDelivery(
		id.NewDeliveryID(), params.DonationID,
		donation.LocationID, params.DropoffLocationID,
		params.RecipientPhone, params.Notes, params.Now,
	)
	if err := deliverystore.InsertTx(ctx, tx, delivery); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit match: %w", err)
	}
	return &CommitResult{Donation: donation, Delivery: delivery}, nil
}
