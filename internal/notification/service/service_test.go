package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"foodbridge/internal/notification/models"
	"foodbridge/internal/notification/store"
	"foodbridge/internal/platform/logger"
	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
)

type NotificationServiceSuite struct {
	suite.Suite
	service *Service
	ctx     context.Context
}

func (s *NotificationServiceSuite) SetupTest() {
	s.service = New(store.NewInMemory(), logger.New())
	s.ctx = context.Background()
}

func TestNotificationServiceSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceSuite))
}

func (s *NotificationServiceSuite) TestEmitAndList() {
	user := id.NewUserID()
	donationID := id.NewDonationID()

	first, err := s.service.Emit(s.ctx, user, models.KindDonationMatched, "matched", models.Meta{DonationID: &donationID})
	s.Require().NoError(err)
	s.False(first.Read)

	// Force distinct timestamps so ordering is deterministic.
	time.Sleep(time.Millisecond)
	second, err := s.service.Emit(s.ctx, user, models.KindDelivered, "delivered", models.Meta{DonationID: &donationID})
	s.Require().NoError(err)

	listed, err := s.service.List(s.ctx, user, id.DefaultPage())
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(second.ID, listed[0].ID)
	s.Equal(first.ID, listed[1].ID)
}

func (s *NotificationServiceSuite) TestUnreadCount() {
	user := id.NewUserID()
	_, err := s.service.Emit(s.ctx, user, models.KindMatchProposal, "a", models.Meta{})
	s.Require().NoError(err)
	n, err := s.service.Emit(s.ctx, user, models.KindMatchProposal, "b", models.Meta{})
	s.Require().NoError(err)

	count, err := s.service.UnreadCount(s.ctx, user)
	s.Require().NoError(err)
	s.Equal(2, count)

	s.Require().NoError(s.service.MarkRead(s.ctx, user, n.ID))
	count, err = s.service.UnreadCount(s.ctx, user)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *NotificationServiceSuite) TestMarkReadIdempotent() {
	user := id.NewUserID()
	n, err := s.service.Emit(s.ctx, user, models.KindPickedUp, "picked up", models.Meta{})
	s.Require().NoError(err)

	s.Require().NoError(s.service.MarkRead(s.ctx, user, n.ID))
	s.Require().NoError(s.service.MarkRead(s.ctx, user, n.ID))

	count, err := s.service.UnreadCount(s.ctx, user)
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *NotificationServiceSuite) TestMarkReadForeignNotification() {
	owner := id.NewUserID()
	n, err := s.service.Emit(s.ctx, owner, models.KindPickedUp, "picked up", models.Meta{})
	s.Require().NoError(err)

	err = s.service.MarkRead(s.ctx, id.NewUserID(), n.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *NotificationServiceSuite) TestMarkReadUnknownID() {
	err := s.service.MarkRead(s.ctx, id.NewUserID(), id.NewNotificationID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
