package store

import (
	"context"
	"time"

	"foodbridge/internal/need/models"
	id "foodbridge/pkg/domain"
)

// UpdateParams carries the recipient-editable fields of an open need.
type UpdateParams struct {
	FoodType          string
	Quantity          string
	DropoffLocationID id.LocationID
	ContactPhone      string
	Notes             string
}

// Store persists needs. Like the donation store, contended mutations are
// conditional: consumption and edits are keyed on the need still being open.
type Store interface {
	Create(ctx context.Context, need *models.Need) error
	FindByID(ctx context.Context, needID id.NeedID) (*models.Need, error)
	ListByRecipient(ctx context.Context, recipientID id.UserID, page id.Page) ([]*models.Need, error)

	// ListOpenByFoodType returns unmatched needs for the food type, oldest
	// first. The matching engine treats the head as the candidate.
	ListOpenByFoodType(ctx context.Context, foodType string, page id.Page) ([]*models.Need, error)

	// UpdateIfOpen edits the recipient's own need only while unmatched.
	// sentinel.ErrNotFound for unknown ids or wrong owner,
	// sentinel.ErrConflict once matched.
	UpdateIfOpen(ctx context.Context, needID id.NeedID, recipientID id.UserID, params UpdateParams, now time.Time) (*models.Need, error)

	// DeleteIfOpen removes the recipient's own need only while unmatched.
	DeleteIfOpen(ctx context.Context, needID id.NeedID, recipientID id.UserID) error

	// ConsumeIfOpen binds the donation to the need only if it is still open.
	// This is the need half of the match commit.
	ConsumeIfOpen(ctx context.Context, needID id.NeedID, donationID id.DonationID, now time.Time) (*models.Need, error)

	// Release reverts a consumption when a later step of the commit fails.
	Release(ctx context.Context, needID id.NeedID, now time.Time) error
}
