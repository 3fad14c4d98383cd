//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"foodbridge/internal/donation/models"
	"foodbridge/internal/donation/store"
	"foodbridge/internal/location"
	id "foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
	"foodbridge/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	store     *store.PostgresStore
	locations *location.PostgresStore

	locationID id.LocationID
	now        time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.locations = location.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	// Truncate in dependency order.
	err := s.postgres.TruncateTables(ctx,
		"delivery_timeline_events", "deliveries", "needs", "donations", "locations",
	)
	s.Require().NoError(err)

	s.now = time.Now().Truncate(time.Microsecond)

	loc, err := location.New(id.NewLocationID(), "Restaurant", 40.7, -74.0, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.locations.Save(ctx, loc))
	s.locationID = loc.ID
}

func (s *PostgresStoreSuite) newDonation() *models.Donation {
	donation, err := models.NewDonation(
		id.NewDonationID(), id.NewUserID(),
		"Dairy", "10 kg", s.locationID,
		s.now, s.now.Add(24*time.Hour), s.now.Add(48*time.Hour),
		"", s.now,
	)
	s.Require().NoError(err)
	return donation
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	donation := s.newDonation()
	s.Require().NoError(s.store.Create(ctx, donation))

	found, err := s.store.FindByID(ctx, donation.ID)
	s.Require().NoError(err)
	s.Equal(donation.ID, found.ID)
	s.Equal(models.StatusPending, found.Status)
	s.Nil(found.RecipientID)
}

// TestConcurrentClaim verifies that concurrent claims on one donation resolve
// to exactly one winner under real serialization.
func (s *PostgresStoreSuite) TestConcurrentClaim() {
	ctx := context.Background()
	donation := s.newDonation()
	s.Require().NoError(s.store.Create(ctx, donation))

	const goroutines = 50

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.store.ClaimIfPending(ctx, donation.ID, id.NewUserID(), models.StatusClaimed, time.Now())
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}

	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one claim should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should get conflict")

	found, err := s.store.FindByID(ctx, donation.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusClaimed, found.Status)
	s.NotNil(found.RecipientID)
}

func (s *PostgresStoreSuite) TestClaimExpired() {
	ctx := context.Background()
	donation := s.newDonation()
	donation.AvailableFrom = s.now.Add(-48 * time.Hour)
	donation.AvailableTo = s.now.Add(-24 * time.Hour)
	s.Require().NoError(s.store.Create(ctx, donation))

	_, err := s.store.ClaimIfPending(ctx, donation.ID, id.NewUserID(), models.StatusClaimed, s.now)
	s.ErrorIs(err, sentinel.ErrExpired)
}

func (s *PostgresStoreSuite) TestReleaseClaim() {
	ctx := context.Background()
	donation := s.newDonation()
	s.Require().NoError(s.store.Create(ctx, donation))

	_, err := s.store.ClaimIfPending(ctx, donation.ID, id.NewUserID(), models.StatusClaimed, s.now)
	s.Require().NoError(err)

	s.Require().NoError(s.store.ReleaseClaim(ctx, donation.ID, s.now))

	found, err := s.store.FindByID(ctx, donation.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, found.Status)
	s.Nil(found.RecipientID)

	// Released donations can be claimed again.
	_, err = s.store.ClaimIfPending(ctx, donation.ID, id.NewUserID(), models.StatusClaimed, s.now)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestCancelIfPending() {
	ctx := context.Background()
	donation := s.newDonation()
	s.Require().NoError(s.store.Create(ctx, donation))

	// Wrong donor reads as not found.
	err := s.store.CancelIfPending(ctx, donation.ID, id.NewUserID(), s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.CancelIfPending(ctx, donation.ID, donation.DonorID, s.now))

	// A cancelled donation cannot be cancelled again.
	err = s.store.CancelIfPending(ctx, donation.ID, donation.DonorID, s.now)
	s.ErrorIs(err, sentinel.ErrConflict)

	// Nor claimed.
	_, err = s.store.ClaimIfPending(ctx, donation.ID, id.NewUserID(), models.StatusClaimed, s.now)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestListOpenSkipsExpired() {
	ctx := context.Background()

	open := s.newDonation()
	s.Require().NoError(s.store.Create(ctx, open))

	expired := s.newDonation()
	expired.AvailableFrom = s.now.Add(-48 * time.Hour)
	expired.AvailableTo = s.now.Add(-24 * time.Hour)
	s.Require().NoError(s.store.Create(ctx, expired))

	listed, err := s.store.ListOpen(ctx, s.now, id.DefaultPage())
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(open.ID, listed[0].ID)
}

func (s *PostgresStoreSuite) TestExpireStale() {
	ctx := context.Background()

	stale := s.newDonation()
	stale.AvailableFrom = s.now.Add(-48 * time.Hour)
	stale.AvailableTo = s.now.Add(-24 * time.Hour)
	s.Require().NoError(s.store.Create(ctx, stale))

	fresh := s.newDonation()
	s.Require().NoError(s.store.Create(ctx, fresh))

	expired, err := s.store.ExpireStale(ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, expired)

	found, err := s.store.FindByID(ctx, stale.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, found.Status)

	found, err = s.store.FindByID(ctx, fresh.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, found.Status)
}

func (s *PostgresStoreSuite) TestListByDonorOrder() {
	ctx := context.Background()
	donorID := id.NewUserID()

	first := s.newDonation()
	first.DonorID = donorID
	first.CreatedAt = s.now.Add(-time.Hour)
	s.Require().NoError(s.store.Create(ctx, first))

	second := s.newDonation()
	second.DonorID = donorID
	s.Require().NoError(s.store.Create(ctx, second))

	listed, err := s.store.ListByDonor(ctx, donorID, id.DefaultPage())
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(first.ID, listed[0].ID)
	s.Equal(second.ID, listed[1].ID)
}
