package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"foodbridge/internal/donation/models"
	id "foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
)

type DonationStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func (s *DonationStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Now()
}

func TestDonationStoreSuite(t *testing.T) {
	suite.Run(t, new(DonationStoreSuite))
}

func (s *DonationStoreSuite) newDonation(donorID id.UserID) *models.Donation {
	donation, err := models.NewDonation(
		id.NewDonationID(), donorID,
		"Dairy", "10 kg", id.NewLocationID(),
		s.now, s.now.Add(24*time.Hour), s.now.Add(48*time.Hour),
		"", s.now,
	)
	s.Require().NoError(err)
	return donation
}

func (s *DonationStoreSuite) TestCreateAndFind() {
	donation := s.newDonation(id.NewUserID())
	s.Require().NoError(s.store.Create(s.ctx, donation))

	found, err := s.store.FindByID(s.ctx, donation.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, found.Status)
	s.Equal("Dairy", found.FoodType)
}

func (s *DonationStoreSuite) TestClaimIfPending() {
	donation := s.newDonation(id.NewUserID())
	s.Require().NoError(s.store.Create(s.ctx, donation))

	recipient := id.NewUserID()
	claimed, err := s.store.ClaimIfPending(s.ctx, donation.ID, recipient, models.StatusClaimed, s.now)
	s.Require().NoError(err)
	s.Equal(models.StatusClaimed, claimed.Status)
	s.Require().NotNil(claimed.RecipientID)
	s.Equal(recipient, *claimed.RecipientID)

	// Second claim loses.
	_, err = s.store.ClaimIfPending(s.ctx, donation.ID, id.NewUserID(), models.StatusClaimed, s.now)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *DonationStoreSuite) TestClaimUnknownID() {
	_, err := s.store.ClaimIfPending(s.ctx, id.NewDonationID(), id.NewUserID(), models.StatusClaimed, s.now)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *DonationStoreSuite) TestClaimExpired() {
	donation := s.newDonation(id.NewUserID())
	s.Require().NoError(s.store.Create(s.ctx, donation))

	later := s.now.Add(72 * time.Hour)
	_, err := s.store.ClaimIfPending(s.ctx, donation.ID, id.NewUserID(), models.StatusClaimed, later)
	s.Require().ErrorIs(err, sentinel.ErrExpired)
}

func (s *DonationStoreSuite) TestConcurrentClaimsSingleWinner() {
	donation := s.newDonation(id.NewUserID())
	s.Require().NoError(s.store.Create(s.ctx, donation))

	const claimers = 32
	var wg sync.WaitGroup
	wins := make(chan id.UserID, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recipient := id.NewUserID()
			if _, err := s.store.ClaimIfPending(s.ctx, donation.ID, recipient, models.StatusClaimed, s.now); err == nil {
				wins <- recipient
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []id.UserID
	for w := range wins {
		winners = append(winners, w)
	}
	s.Require().Len(winners, 1)

	found, err := s.store.FindByID(s.ctx, donation.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found.RecipientID)
	s.Equal(winners[0], *found.RecipientID)
}

func (s *DonationStoreSuite) TestReleaseClaim() {
	donation := s.newDonation(id.NewUserID())
	s.Require().NoError(s.store.Create(s.ctx, donation))

	_, err := s.store.ClaimIfPending(s.ctx, donation.ID, id.NewUserID(), models.StatusMatched, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.ReleaseClaim(s.ctx, donation.ID, s.now))

	found, err := s.store.FindByID(s.ctx, donation.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, found.Status)
	s.Nil(found.RecipientID)
}

func (s *DonationStoreSuite) TestCancelIfPending() {
	donor := id.NewUserID()
	donation := s.newDonation(donor)
	s.Require().NoError(s.store.Create(s.ctx, donation))

	// Wrong donor reads as unknown.
	s.Require().ErrorIs(s.store.CancelIfPending(s.ctx, donation.ID, id.NewUserID(), s.now), sentinel.ErrNotFound)

	s.Require().NoError(s.store.CancelIfPending(s.ctx, donation.ID, donor, s.now))

	// Already cancelled.
	s.Require().ErrorIs(s.store.CancelIfPending(s.ctx, donation.ID, donor, s.now), sentinel.ErrConflict)
}

func (s *DonationStoreSuite) TestListOpenFiltersExpired() {
	fresh := s.newDonation(id.NewUserID())
	s.Require().NoError(s.store.Create(s.ctx, fresh))

	stale := s.newDonation(id.NewUserID())
	stale.AvailableTo = s.now.Add(-time.Hour)
	stale.ExpiryDate = s.now.Add(-time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, stale))

	open, err := s.store.ListOpen(s.ctx, s.now, id.DefaultPage())
	s.Require().NoError(err)
	s.Require().Len(open, 1)
	s.Equal(fresh.ID, open[0].ID)
}

func (s *DonationStoreSuite) TestExpireStale() {
	stale := s.newDonation(id.NewUserID())
	stale.AvailableTo = s.now.Add(-time.Hour)
	stale.ExpiryDate = s.now.Add(-time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, stale))

	fresh := s.newDonation(id.NewUserID())
	s.Require().NoError(s.store.Create(s.ctx, fresh))

	count, err := s.store.ExpireStale(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, count)

	found, err := s.store.FindByID(s.ctx, stale.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, found.Status)
}

func (s *DonationStoreSuite) TestListByDonorOrdersOldestFirst() {
	donor := id.NewUserID()
	first := s.newDonation(donor)
	first.CreatedAt = s.now.Add(-2 * time.Hour)
	second := s.newDonation(donor)
	second.CreatedAt = s.now.Add(-time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, second))
	s.Require().NoError(s.store.Create(s.ctx, first))

	owned, err := s.store.ListByDonor(s.ctx, donor, id.DefaultPage())
	s.Require().NoError(err)
	s.Require().Len(owned, 2)
	s.Equal(first.ID, owned[0].ID)
	s.Equal(second.ID, owned[1].ID)
}
