package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	deliverymodels "foodbridge/internal/delivery/models"
	deliverystore "foodbridge/internal/delivery/store"
	donationmodels "foodbridge/internal/donation/models"
	donationstore "foodbridge/internal/donation/store"
	notifmodels "foodbridge/internal/notification/models"
	notificationservice "foodbridge/internal/notification/service"
	notificationstore "foodbridge/internal/notification/store"
	"foodbridge/internal/platform/logger"
	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
)

type DeliveryServiceSuite struct {
	suite.Suite
	service       *Service
	deliveries    *deliverystore.InMemoryStore
	donations     *donationstore.InMemoryStore
	notifications *notificationservice.Service
	ctx           context.Context
	now           time.Time

	donation  *donationmodels.Donation
	delivery  *deliverymodels.Delivery
	recipient id.UserID
	staff     id.UserID
}

func (s *DeliveryServiceSuite) SetupTest() {
	log := logger.New()
	s.deliveries = deliverystore.NewInMemory()
	s.donations = donationstore.NewInMemory()
	s.notifications = notificationservice.New(notificationstore.NewInMemory(), log)
	s.service = New(s.deliveries, s.donations, s.notifications, log)
	s.ctx = context.Background()
	s.now = time.Now()
	s.recipient = id.NewUserID()
	s.staff = id.NewUserID()

	donation, err := donationmodels.NewDonation(
		id.NewDonationID(), id.NewUserID(),
		"Dairy", "10 kg", id.NewLocationID(),
		s.now, s.now.Add(24*time.Hour), s.now.Add(48*time.Hour),
		"", s.now,
	)
	s.Require().NoError(err)
	s.Require().NoError(s.donations.Create(s.ctx, donation))
	claimed, err := s.donations.ClaimIfPending(s.ctx, donation.ID, s.recipient, donationmodels.StatusClaimed, s.now)
	s.Require().NoError(err)
	s.donation = claimed

	s.delivery = deliverymodels.NewDelivery(
		id.NewDeliveryID(), donation.ID,
		donation.LocationID, id.NewLocationID(),
		"+15550100", "", s.now,
	)
	s.Require().NoError(s.deliveries.Create(s.ctx, s.delivery))
}

func TestDeliveryServiceSuite(t *testing.T) {
	suite.Run(t, new(DeliveryServiceSuite))
}

// runFullLifecycle drives the delivery from PENDING to DELIVERED.
func (s *DeliveryServiceSuite) runFullLifecycle() {
	_, err := s.service.AssignStaff(s.ctx, s.staff, s.delivery.ID)
	s.Require().NoError(err)
	_, err = s.service.SchedulePickup(s.ctx, s.staff, s.delivery.ID, s.now.Add(time.Hour))
	s.Require().NoError(err)
	_, err = s.service.CompletePickup(s.ctx, s.staff, s.delivery.ID)
	s.Require().NoError(err)
	_, err = s.service.ScheduleDropoff(s.ctx, s.staff, s.delivery.ID, s.now.Add(2*time.Hour))
	s.Require().NoError(err)
	_, err = s.service.CompleteDropoff(s.ctx, s.staff, s.delivery.ID)
	s.Require().NoError(err)
	_, err = s.service.CompleteDelivery(s.ctx, s.staff, s.delivery.ID)
	s.Require().NoError(err)
}

func (s *DeliveryServiceSuite) TestFullLifecycle() {
	s.runFullLifecycle()

	detail, err := s.service.Get(s.ctx, s.delivery.ID)
	s.Require().NoError(err)
	s.Equal(deliverymodels.StatusDelivered, detail.Delivery.Status)
	s.Require().NotNil(detail.Delivery.DeliveredAt)
	s.Require().NotNil(detail.Delivery.StaffID)
	s.Equal(s.staff, *detail.Delivery.StaffID)

	// One timeline event per transition, in lifecycle order.
	s.Require().Len(detail.Timeline, 6)
	expected := []deliverymodels.Status{
		deliverymodels.StatusAssigned,
		deliverymodels.StatusPickupScheduled,
		deliverymodels.StatusPickedUp,
		deliverymodels.StatusDropoffScheduled,
		deliverymodels.StatusDroppedOff,
		deliverymodels.StatusDelivered,
	}
	for i, event := range detail.Timeline {
		s.Equal(expected[i], event.Status)
	}

	// Completion marks the donation fulfilled.
	donation, err := s.donations.FindByID(s.ctx, s.donation.ID)
	s.Require().NoError(err)
	s.NotNil(donation.FulfilledAt)
}

func (s *DeliveryServiceSuite) TestNoSkipping() {
	_, err := s.service.AssignStaff(s.ctx, s.staff, s.delivery.ID)
	s.Require().NoError(err)

	// ASSIGNED cannot jump to PICKED_UP.
	_, err = s.service.CompletePickup(s.ctx, s.staff, s.delivery.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *DeliveryServiceSuite) TestNoReEntry() {
	s.runFullLifecycle()

	_, err := s.service.CompleteDelivery(s.ctx, s.staff, s.delivery.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	// Re-entry attempts add no timeline events.
	timeline, err := s.deliveries.Timeline(s.ctx, s.delivery.ID)
	s.Require().NoError(err)
	s.Len(timeline, 6)
}

func (s *DeliveryServiceSuite) TestAssignRace() {
	_, err := s.service.AssignStaff(s.ctx, s.staff, s.delivery.ID)
	s.Require().NoError(err)

	_, err = s.service.AssignStaff(s.ctx, id.NewUserID(), s.delivery.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *DeliveryServiceSuite) TestForeignStaffCannotTransition() {
	_, err := s.service.AssignStaff(s.ctx, s.staff, s.delivery.ID)
	s.Require().NoError(err)

	_, err = s.service.SchedulePickup(s.ctx, id.NewUserID(), s.delivery.ID, s.now.Add(time.Hour))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DeliveryServiceSuite) TestScheduleRequiresTimestamp() {
	_, err := s.service.AssignStaff(s.ctx, s.staff, s.delivery.ID)
	s.Require().NoError(err)

	_, err = s.service.SchedulePickup(s.ctx, s.staff, s.delivery.ID, time.Time{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *DeliveryServiceSuite) TestNotifications() {
	s.runFullLifecycle()

	// Donor hears about pickup scheduling, pickup, and final delivery.
	donorNotes, err := s.notifications.List(s.ctx, s.donation.DonorID, id.DefaultPage())
	s.Require().NoError(err)
	kinds := make(map[notifmodels.Kind]int)
	for _, n := range donorNotes {
		kinds[n.Kind]++
	}
	s.Equal(1, kinds[notifmodels.KindPickupScheduled])
	s.Equal(1, kinds[notifmodels.KindPickedUp])
	s.Equal(1, kinds[notifmodels.KindDelivered])

	// Recipient hears about the final delivery only.
	recipientNotes, err := s.notifications.List(s.ctx, s.recipient, id.DefaultPage())
	s.Require().NoError(err)
	s.Require().Len(recipientNotes, 1)
	s.Equal(notifmodels.KindDelivered, recipientNotes[0].Kind)
}

func (s *DeliveryServiceSuite) TestUnknownDelivery() {
	_, err := s.service.AssignStaff(s.ctx, s.staff, id.NewDeliveryID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DeliveryServiceSuite) TestListUnassignedAndByStaff() {
	pool, err := s.service.ListUnassigned(s.ctx, id.DefaultPage())
	s.Require().NoError(err)
	s.Require().Len(pool, 1)

	_, err = s.service.AssignStaff(s.ctx, s.staff, s.delivery.ID)
	s.Require().NoError(err)

	pool, err = s.service.ListUnassigned(s.ctx, id.DefaultPage())
	s.Require().NoError(err)
	s.Len(pool, 0)

	mine, err := s.service.ListByStaff(s.ctx, s.staff, false, id.DefaultPage())
	s.Require().NoError(err)
	s.Require().Len(mine, 1)

	history, err := s.service.ListByStaff(s.ctx, s.staff, true, id.DefaultPage())
	s.Require().NoError(err)
	s.Len(history, 0)
}
