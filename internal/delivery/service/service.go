package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"foodbridge/internal/audit"
	"foodbridge/internal/delivery/models"
	"foodbridge/internal/delivery/store"
	donationmodels "foodbridge/internal/donation/models"
	notifmodels "foodbridge/internal/notification/models"
	"foodbridge/internal/platform/metrics"
	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/sentinel"
)

// DonationDirectory is the slice of the donation store the lifecycle needs:
// looking up the parties and recording terminal fulfilment.
type DonationDirectory interface {
	FindByID(ctx context.Context, donationID id.DonationID) (*donationmodels.Donation, error)
	MarkFulfilled(ctx context.Context, donationID id.DonationID, at time.Time) error
}

// Notifier emits in-app notifications after a transition commits.
type Notifier interface {
	Emit(ctx context.Context, userID id.UserID, kind notifmodels.Kind, message string, meta notifmodels.Meta) (*notifmodels.Notification, error)
}

// Service drives the delivery lifecycle. Every operation is one conditional
// transition keyed on the exact predecessor status; side effects fire only
// after the transition has committed.
type Service struct {
	deliveries store.Store
	donations  DonationDirectory
	notifier   Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
	audit      audit.Publisher
	tracer     trace.Tracer
}

type Option func(s *Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func New(deliveries store.Store, donations DonationDirectory, notifier Notifier, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		deliveries: deliveries,
		donations:  donations,
		notifier:   notifier,
		logger:     logger,
		tracer:     otel.Tracer("foodbridge/delivery"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssignStaff lets a logistics member pick up an unassigned delivery.
func (s *Service) AssignStaff(ctx context.Context, staffID id.UserID, deliveryID id.DeliveryID) (*models.Delivery, error) {
	return s.transition(ctx, staffID, store.TransitionParams{
		DeliveryID:    deliveryID,
		From:          models.StatusPending,
		To:            models.StatusAssigned,
		Detail:        "assigned to staff " + staffID.String(),
		AssignStaffID: &staffID,
	}, nil)
}

// SchedulePickup records the planned pickup time. Notifies the donor.
func (s *Service) SchedulePickup(ctx context.Context, staffID id.UserID, deliveryID id.DeliveryID, at time.Time) (*models.Delivery, error) {
	if at.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "scheduled_at is required")
	}
	return s.transition(ctx, staffID, store.TransitionParams{
		DeliveryID:        deliveryID,
		From:              models.StatusAssigned,
		To:                models.StatusPickupScheduled,
		Detail:            "pickup scheduled for " + at.Format(time.RFC3339),
		RequireStaffID:    &staffID,
		ScheduledPickupAt: &at,
	}, func(ctx context.Context, delivery *models.Delivery, donation *donationmodels.Donation) {
		s.notify(ctx, donation.DonorID, notifmodels.KindPickupScheduled,
			"Pickup for your donation has been scheduled", delivery, donation)
	})
}

// CompletePickup confirms the food has been collected. Notifies the donor.
func (s *Service) CompletePickup(ctx context.Context, staffID id.UserID, deliveryID id.DeliveryID) (*models.Delivery, error) {
	return s.transition(ctx, staffID, store.TransitionParams{
		DeliveryID:     deliveryID,
		From:           models.StatusPickupScheduled,
		To:             models.StatusPickedUp,
		Detail:         "picked up from donor",
		RequireStaffID: &staffID,
	}, func(ctx context.Context, delivery *models.Delivery, donation *donationmodels.Donation) {
		s.notify(ctx, donation.DonorID, notifmodels.KindPickedUp,
			"Your donation has been picked up", delivery, donation)
	})
}

// ScheduleDropoff records the planned dropoff time.
func (s *Service) ScheduleDropoff(ctx context.Context, staffID id.UserID, deliveryID id.DeliveryID, at time.Time) (*models.Delivery, error) {
	if at.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "scheduled_at is required")
	}
	return s.transition(ctx, staffID, store.TransitionParams{
		DeliveryID:         deliveryID,
		From:               models.StatusPickedUp,
		To:                 models.StatusDropoffScheduled,
		Detail:             "dropoff scheduled for " + at.Format(time.RFC3339),
		RequireStaffID:     &staffID,
		ScheduledDropoffAt: &at,
	}, nil)
}

// CompleteDropoff confirms the food has arrived at the dropoff location.
func (s *Service) CompleteDropoff(ctx context.Context, staffID id.UserID, deliveryID id.DeliveryID) (*models.Delivery, error) {
	return s.transition(ctx, staffID, store.TransitionParams{
		DeliveryID:     deliveryID,
		From:           models.StatusDropoffScheduled,
		To:             models.StatusDroppedOff,
		Detail:         "dropped off at recipient location",
		RequireStaffID: &staffID,
	}, nil)
}

// CompleteDelivery closes the lifecycle: sets delivered_at, marks the
// donation fulfilled, and notifies both parties.
func (s *Service) CompleteDelivery(ctx context.Context, staffID id.UserID, deliveryID id.DeliveryID) (*models.Delivery, error) {
	now := time.Now()
	delivery, err := s.transition(ctx, staffID, store.TransitionParams{
		DeliveryID:     deliveryID,
		From:           models.StatusDroppedOff,
		To:             models.StatusDelivered,
		Detail:         "delivery confirmed complete",
		RequireStaffID: &staffID,
		DeliveredAt:    &now,
	}, func(ctx context.Context, delivery *models.Delivery, donation *donationmodels.Donation) {
		s.notify(ctx, donation.DonorID, notifmodels.KindDelivered,
			"Your donation has been delivered", delivery, donation)
		if donation.RecipientID != nil {
			s.notify(ctx, *donation.RecipientID, notifmodels.KindDelivered,
				"Your food has been delivered", delivery, donation)
		}
	})
	if err != nil {
		return nil, err
	}

	if err := s.donations.MarkFulfilled(ctx, delivery.DonationID, now); err != nil {
		// The delivery itself is final; fulfilment is bookkeeping on the
		// donation side, so log rather than fail the completed transition.
		s.logger.ErrorContext(ctx, "failed to mark donation fulfilled",
			"donation_id", delivery.DonationID,
			"delivery_id", delivery.ID,
			"error", err,
		)
	}
	if s.metrics != nil {
		s.metrics.DeliveriesCompleted.Inc()
	}
	return delivery, nil
}

// transition runs one lifecycle step and fires side effects after commit.
func (s *Service) transition(ctx context.Context, actorID id.UserID, params store.TransitionParams, after func(context.Context, *models.Delivery, *donationmodels.Donation)) (*models.Delivery, error) {
	ctx, span := s.tracer.Start(ctx, "delivery.transition",
		trace.WithAttributes(
			attribute.String("delivery.id", params.DeliveryID.String()),
			attribute.String("delivery.to", string(params.To)),
		))
	defer span.End()

	params.Now = time.Now()
	start := params.Now

	delivery, err := s.deliveries.Transition(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "delivery not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			if s.metrics != nil {
				s.metrics.InvalidTransitions.Inc()
			}
			return nil, dErrors.New(dErrors.CodeConflict, "delivery is not in a state that allows this transition")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to transition delivery")
		}
	}

	if s.metrics != nil {
		s.metrics.DeliveryTransitions.WithLabelValues(string(params.To)).Inc()
		s.metrics.TransitionDuration.Observe(time.Since(start).Seconds())
	}
	s.emitAudit(ctx, actorID, delivery.ID, params.To)

	if after != nil {
		donation, err := s.donations.FindByID(ctx, delivery.DonationID)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to load donation for notifications",
				"donation_id", delivery.DonationID,
				"error", err,
			)
		} else {
			after(ctx, delivery, donation)
		}
	}
	return delivery, nil
}

// Detail is the full read model: delivery, timeline, and the donation it
// carries.
type Detail struct {
	Delivery *models.Delivery         `json:"delivery"`
	Timeline []*models.TimelineEvent  `json:"timeline"`
	Donation *donationmodels.Donation `json:"donation"`
}

// Get returns the delivery with its timeline and the underlying donation.
func (s *Service) Get(ctx context.Context, deliveryID id.DeliveryID) (*Detail, error) {
	delivery, err := s.deliveries.FindByID(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "delivery not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load delivery")
	}
	timeline, err := s.deliveries.Timeline(ctx, deliveryID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load delivery timeline")
	}
	donation, err := s.donations.FindByID(ctx, delivery.DonationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donation for delivery")
	}
	return &Detail{Delivery: delivery, Timeline: timeline, Donation: donation}, nil
}

// ListByStatus serves the logistics dashboards.
func (s *Service) ListByStatus(ctx context.Context, status models.Status, page id.Page) ([]*models.Delivery, error) {
	deliveries, err := s.deliveries.ListByStatus(ctx, status, page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deliveries")
	}
	return deliveries, nil
}

// ListUnassigned returns the open pool available for self-assignment.
func (s *Service) ListUnassigned(ctx context.Context, page id.Page) ([]*models.Delivery, error) {
	deliveries, err := s.deliveries.ListUnassigned(ctx, page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list unassigned deliveries")
	}
	return deliveries, nil
}

// ListByStaff returns the staff member's active or delivered work.
func (s *Service) ListByStaff(ctx context.Context, staffID id.UserID, deliveredOnly bool, page id.Page) ([]*models.Delivery, error) {
	deliveries, err := s.deliveries.ListByStaff(ctx, staffID, deliveredOnly, page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list staff deliveries")
	}
	return deliveries, nil
}

func (s *Service) notify(ctx context.Context, userID id.UserID, kind notifmodels.Kind, message string, delivery *models.Delivery, donation *donationmodels.Donation) {
	if s.notifier == nil {
		return
	}
	meta := notifmodels.Meta{
		DonationID: &donation.ID,
		DeliveryID: &delivery.ID,
	}
	if _, err := s.notifier.Emit(ctx, userID, kind, message, meta); err != nil {
		s.logger.WarnContext(ctx, "failed to emit delivery notification",
			"kind", string(kind),
			"user_id", userID,
			"error", err,
		)
	}
}

func (s *Service) emitAudit(ctx context.Context, actorID id.UserID, deliveryID id.DeliveryID, to models.Status) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, audit.Event{
		Actor:    actorID.String(),
		Action:   audit.ActionDeliveryTransition,
		Entity:   "delivery",
		EntityID: deliveryID.String(),
		Detail:   string(to),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", string(audit.ActionDeliveryTransition), "error", err)
	}
}
