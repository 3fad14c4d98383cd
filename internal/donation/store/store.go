package store

import (
	"context"
	"time"

	"foodbridge/internal/donation/models"
	id "foodbridge/pkg/domain"
)

// Store persists donations. Mutations on contended state go through
// conditional operations keyed on the current status; there are no blind
// overwrites of a donation's status.
type Store interface {
	Create(ctx context.Context, donation *models.Donation) error
	FindByID(ctx context.Context, donationID id.DonationID) (*models.Donation, error)

	// ListOpen returns claimable donations: PENDING and not expired at `now`,
	// oldest first.
	ListOpen(ctx context.Context, now time.Time, page id.Page) ([]*models.Donation, error)
	ListByDonor(ctx context.Context, donorID id.UserID, page id.Page) ([]*models.Donation, error)
	ListByRecipient(ctx context.Context, recipientID id.UserID, page id.Page) ([]*models.Donation, error)

	// ClaimIfPending binds the recipient and moves the donation to `status`
	// only if it is still PENDING and not expired. This is the exclusivity
	// gate: exactly one concurrent caller wins. Losers receive
	// sentinel.ErrConflict, expired donations sentinel.ErrExpired, unknown
	// ids sentinel.ErrNotFound.
	ClaimIfPending(ctx context.Context, donationID id.DonationID, recipientID id.UserID, status models.Status, now time.Time) (*models.Donation, error)

	// ReleaseClaim reverts a claim when a later step of the commit fails.
	ReleaseClaim(ctx context.Context, donationID id.DonationID, now time.Time) error

	// CancelIfPending cancels the donor's own donation only while PENDING.
	CancelIfPending(ctx context.Context, donationID id.DonationID, donorID id.UserID, now time.Time) error

	// MarkFulfilled records terminal delivery completion.
	MarkFulfilled(ctx context.Context, donationID id.DonationID, at time.Time) error

	// ExpireStale marks PENDING donations past their expiry as EXPIRED and
	// returns how many rows changed.
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}
