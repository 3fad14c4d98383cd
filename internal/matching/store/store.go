package store

import (
	"context"
	"time"

	deliverymodels "foodbridge/internal/delivery/models"
	donationmodels "foodbridge/internal/donation/models"
	id "foodbridge/pkg/domain"
)

// CommitParams describes one match commit: bind a recipient to a PENDING
// donation and open its delivery. NeedID is set on the accept and change
// paths, nil on a direct claim.
type CommitParams struct {
	DonationID  id.DonationID
	RecipientID id.UserID
	NeedID      *id.NeedID

	// TargetStatus is MATCHED for proposal commits, CLAIMED for direct claims.
	TargetStatus donationmodels.Status

	DropoffLocationID id.LocationID
	RecipientPhone    string
	Notes             string

	Now time.Time
}

// CommitResult is what a successful commit produced.
type CommitResult struct {
	Donation *donationmodels.Donation `json:"donation"`
	Delivery *deliverymodels.Delivery `json:"delivery"`
}

// Committer performs the match commit as one atomic unit: the conditional
// donation claim, the need consumption when a need is involved, and the
// delivery insert either all happen or none do. Concurrent commits for the
// same donation resolve to exactly one winner; losers receive
// sentinel.ErrConflict, expired donations sentinel.ErrExpired.
type Committer interface {
	CommitMatch(ctx context.Context, params CommitParams) (*CommitResult, error)
}
