package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"foodbridge/internal/need/models"
	id "foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
)

type NeedStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func (s *NeedStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Now()
}

func TestNeedStoreSuite(t *testing.T) {
	suite.Run(t, new(NeedStoreSuite))
}

func (s *NeedStoreSuite) newNeed(recipientID id.UserID, foodType string) *models.Need {
	need, err := models.NewNeed(
		id.NewNeedID(), recipientID,
		foodType, "5 kg", id.NewLocationID(),
		"+15550100", "", s.now,
	)
	s.Require().NoError(err)
	return need
}

func (s *NeedStoreSuite) TestConsumeIfOpen() {
	need := s.newNeed(id.NewUserID(), "Dairy")
	s.Require().NoError(s.store.Create(s.ctx, need))

	donationID := id.NewDonationID()
	consumed, err := s.store.ConsumeIfOpen(s.ctx, need.ID, donationID, s.now)
	s.Require().NoError(err)
	s.Require().NotNil(consumed.MatchedDonationID)
	s.Equal(donationID, *consumed.MatchedDonationID)

	// A consumed need cannot be consumed again.
	_, err = s.store.ConsumeIfOpen(s.ctx, need.ID, id.NewDonationID(), s.now)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *NeedStoreSuite) TestRelease() {
	need := s.newNeed(id.NewUserID(), "Dairy")
	s.Require().NoError(s.store.Create(s.ctx, need))

	_, err := s.store.ConsumeIfOpen(s.ctx, need.ID, id.NewDonationID(), s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Release(s.ctx, need.ID, s.now))

	found, err := s.store.FindByID(s.ctx, need.ID)
	s.Require().NoError(err)
	s.True(found.IsOpen())
}

func (s *NeedStoreSuite) TestUpdateOnlyWhileOpen() {
	recipient := id.NewUserID()
	need := s.newNeed(recipient, "Dairy")
	s.Require().NoError(s.store.Create(s.ctx, need))

	updated, err := s.store.UpdateIfOpen(s.ctx, need.ID, recipient, UpdateParams{
		FoodType:          "Produce",
		Quantity:          "8 kg",
		DropoffLocationID: need.DropoffLocationID,
		ContactPhone:      need.ContactPhone,
	}, s.now)
	s.Require().NoError(err)
	s.Equal("Produce", updated.FoodType)

	// Wrong owner reads as unknown.
	_, err = s.store.UpdateIfOpen(s.ctx, need.ID, id.NewUserID(), UpdateParams{}, s.now)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.ConsumeIfOpen(s.ctx, need.ID, id.NewDonationID(), s.now)
	s.Require().NoError(err)
	_, err = s.store.UpdateIfOpen(s.ctx, need.ID, recipient, UpdateParams{}, s.now)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *NeedStoreSuite) TestDeleteOnlyWhileOpen() {
	recipient := id.NewUserID()
	need := s.newNeed(recipient, "Dairy")
	s.Require().NoError(s.store.Create(s.ctx, need))

	_, err := s.store.ConsumeIfOpen(s.ctx, need.ID, id.NewDonationID(), s.now)
	s.Require().NoError(err)
	s.Require().ErrorIs(s.store.DeleteIfOpen(s.ctx, need.ID, recipient), sentinel.ErrConflict)

	open := s.newNeed(recipient, "Produce")
	s.Require().NoError(s.store.Create(s.ctx, open))
	s.Require().NoError(s.store.DeleteIfOpen(s.ctx, open.ID, recipient))
	_, err = s.store.FindByID(s.ctx, open.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *NeedStoreSuite) TestListOpenByFoodTypeFIFO() {
	older := s.newNeed(id.NewUserID(), "Dairy")
	older.CreatedAt = s.now.Add(-2 * time.Hour)
	newer := s.newNeed(id.NewUserID(), "dairy")
	newer.CreatedAt = s.now.Add(-time.Hour)
	other := s.newNeed(id.NewUserID(), "Produce")
	s.Require().NoError(s.store.Create(s.ctx, newer))
	s.Require().NoError(s.store.Create(s.ctx, older))
	s.Require().NoError(s.store.Create(s.ctx, other))

	// Case-insensitive match, oldest first.
	open, err := s.store.ListOpenByFoodType(s.ctx, "DAIRY", id.DefaultPage())
	s.Require().NoError(err)
	s.Require().Len(open, 2)
	s.Equal(older.ID, open[0].ID)
	s.Equal(newer.ID, open[1].ID)

	// Consumed needs drop out.
	_, err = s.store.ConsumeIfOpen(s.ctx, older.ID, id.NewDonationID(), s.now)
	s.Require().NoError(err)
	open, err = s.store.ListOpenByFoodType(s.ctx, "Dairy", id.DefaultPage())
	s.Require().NoError(err)
	s.Require().Len(open, 1)
	s.Equal(newer.ID, open[0].ID)
}
