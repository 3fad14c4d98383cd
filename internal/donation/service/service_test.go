package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"foodbridge/internal/audit"
	"foodbridge/internal/donation/models"
	"foodbridge/internal/donation/store"
	"foodbridge/internal/location"
	"foodbridge/internal/platform/logger"
	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
)

type fakeMatcher struct {
	proposed []id.DonationID
}

func (f *fakeMatcher) ProposeForDonation(_ context.Context, donation *models.Donation) error {
	f.proposed = append(f.proposed, donation.ID)
	return nil
}

type DonationServiceSuite struct {
	suite.Suite
	service   *Service
	store     *store.InMemoryStore
	locations *location.InMemoryStore
	matcher   *fakeMatcher
	auditLog  *audit.InMemoryLog
	ctx       context.Context
	now       time.Time
	location  id.LocationID
}

func (s *DonationServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.locations = location.NewInMemoryStore()
	s.matcher = &fakeMatcher{}
	s.auditLog = audit.NewInMemoryLog()
	s.ctx = context.Background()
	s.now = time.Now()

	loc, err := location.New(id.NewLocationID(), "Restaurant", 40.0, -73.0, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.locations.Save(s.ctx, loc))
	s.location = loc.ID

	s.service = New(s.store, s.locations, logger.New(),
		WithMatcher(s.matcher),
		WithAuditPublisher(s.auditLog),
	)
}

func TestDonationServiceSuite(t *testing.T) {
	suite.Run(t, new(DonationServiceSuite))
}

func (s *DonationServiceSuite) createParams() CreateParams {
	return CreateParams{
		FoodType:      "Dairy",
		Quantity:      "10 kg",
		LocationID:    s.location,
		AvailableFrom: s.now,
		AvailableTo:   s.now.Add(24 * time.Hour),
		ExpiryDate:    s.now.Add(48 * time.Hour),
	}
}

func (s *DonationServiceSuite) TestCreate() {
	donorID := id.NewUserID()
	donation, err := s.service.Create(s.ctx, donorID, s.createParams())
	s.Require().NoError(err)
	s.Equal(models.StatusPending, donation.Status)
	s.Equal(donorID, donation.DonorID)

	// Auto-match pass ran and the creation was audited.
	s.Require().Len(s.matcher.proposed, 1)
	s.Equal(donation.ID, s.matcher.proposed[0])
	events := s.auditLog.Events()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionDonationCreated, events[0].Action)
}

func (s *DonationServiceSuite) TestCreateValidation() {
	params := s.createParams()
	params.FoodType = "  "
	_, err := s.service.Create(s.ctx, id.NewUserID(), params)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	params = s.createParams()
	params.AvailableTo = params.AvailableFrom.Add(-time.Hour)
	_, err = s.service.Create(s.ctx, id.NewUserID(), params)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *DonationServiceSuite) TestCreateUnknownLocation() {
	params := s.createParams()
	params.LocationID = id.NewLocationID()
	_, err := s.service.Create(s.ctx, id.NewUserID(), params)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *DonationServiceSuite) TestCancel() {
	donorID := id.NewUserID()
	donation, err := s.service.Create(s.ctx, donorID, s.createParams())
	s.Require().NoError(err)

	s.Require().NoError(s.service.Cancel(s.ctx, donorID, donation.ID))

	found, err := s.service.Get(s.ctx, donation.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCancelled, found.Status)
}

func (s *DonationServiceSuite) TestCancelAfterClaimConflicts() {
	donorID := id.NewUserID()
	donation, err := s.service.Create(s.ctx, donorID, s.createParams())
	s.Require().NoError(err)

	_, err = s.store.ClaimIfPending(s.ctx, donation.ID, id.NewUserID(), models.StatusClaimed, s.now)
	s.Require().NoError(err)

	err = s.service.Cancel(s.ctx, donorID, donation.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *DonationServiceSuite) TestCancelForeignDonation() {
	donation, err := s.service.Create(s.ctx, id.NewUserID(), s.createParams())
	s.Require().NoError(err)

	err = s.service.Cancel(s.ctx, id.NewUserID(), donation.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DonationServiceSuite) TestGetUnknown() {
	_, err := s.service.Get(s.ctx, id.NewDonationID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DonationServiceSuite) TestListOpen() {
	_, err := s.service.Create(s.ctx, id.NewUserID(), s.createParams())
	s.Require().NoError(err)

	open, err := s.service.ListOpen(s.ctx, id.DefaultPage())
	s.Require().NoError(err)
	s.Len(open, 1)
}
