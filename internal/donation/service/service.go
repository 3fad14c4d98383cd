package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"foodbridge/internal/audit"
	"foodbridge/internal/donation/models"
	"foodbridge/internal/donation/store"
	"foodbridge/internal/location"
	"foodbridge/internal/platform/metrics"
	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/sentinel"
)

// LocationRegistry is the narrow slice of the registry the donation service
// needs: reference validation only.
type LocationRegistry interface {
	Exists(ctx context.Context, locationID id.LocationID) (bool, error)
}

// AutoMatcher kicks off a matching pass for a freshly posted donation. The
// pass is advisory; its failure never fails the creation.
type AutoMatcher interface {
	ProposeForDonation(ctx context.Context, donation *models.Donation) error
}

// Service owns donation CRUD. Matching owns every status change past PENDING;
// this service only ever creates, lists, and cancels.
type Service struct {
	donations store.Store
	locations LocationRegistry
	matcher   AutoMatcher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	audit     audit.Publisher
}

type Option func(s *Service)

func WithMatcher(matcher AutoMatcher) Option {
	return func(s *Service) { s.matcher = matcher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func New(donations store.Store, locations LocationRegistry, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{donations: donations, locations: locations, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries the donor-supplied listing fields.
type CreateParams struct {
	FoodType      string
	Quantity      string
	LocationID    id.LocationID
	AvailableFrom time.Time
	AvailableTo   time.Time
	ExpiryDate    time.Time
	Notes         string
}

// Create posts a new donation and runs an advisory auto-match pass.
func (s *Service) Create(ctx context.Context, donorID id.UserID, params CreateParams) (*models.Donation, error) {
	donation, err := models.NewDonation(
		id.NewDonationID(), donorID,
		params.FoodType, params.Quantity, params.LocationID,
		params.AvailableFrom, params.AvailableTo, params.ExpiryDate,
		params.Notes, time.Now(),
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	exists, err := s.locations.Exists(ctx, donation.LocationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check location")
	}
	if !exists {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown pickup location")
	}

	if err := s.donations.Create(ctx, donation); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create donation")
	}
	if s.metrics != nil {
		s.metrics.DonationsCreated.Inc()
	}
	s.emitAudit(ctx, donorID, audit.ActionDonationCreated, "donation", donation.ID.String())

	if s.matcher != nil {
		if err := s.matcher.ProposeForDonation(ctx, donation); err != nil {
			s.logger.WarnContext(ctx, "auto-match pass failed for new donation",
				"donation_id", donation.ID,
				"error", err,
			)
		}
	}

	return donation, nil
}

// Get returns a single donation.
func (s *Service) Get(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	donation, err := s.donations.FindByID(ctx, donationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donation")
	}
	return donation, nil
}

// ListOpen returns claimable donations, oldest first. Expired listings are
// filtered here; the claim path re-checks expiry at commit time.
func (s *Service) ListOpen(ctx context.Context, page id.Page) ([]*models.Donation, error) {
	donations, err := s.donations.ListOpen(ctx, time.Now(), page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donations")
	}
	return donations, nil
}

// ListByDonor returns the donor's own listings.
func (s *Service) ListByDonor(ctx context.Context, donorID id.UserID, page id.Page) ([]*models.Donation, error) {
	donations, err := s.donations.ListByDonor(ctx, donorID, page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donations")
	}
	return donations, nil
}

// ListByRecipient returns donations matched or claimed by the recipient.
func (s *Service) ListByRecipient(ctx context.Context, recipientID id.UserID, page id.Page) ([]*models.Donation, error) {
	donations, err := s.donations.ListByRecipient(ctx, recipientID, page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donations")
	}
	return donations, nil
}

// Cancel withdraws the donor's own donation while it is still PENDING.
func (s *Service) Cancel(ctx context.Context, donorID id.UserID, donationID id.DonationID) error {
	err := s.donations.CancelIfPending(ctx, donationID, donorID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "donation not found")
		case errors.Is(err, sentinel.ErrConflict):
			return dErrors.New(dErrors.CodeConflict, "donation has already been matched or closed")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel donation")
		}
	}
	if s.metrics != nil {
		s.metrics.DonationsCancelled.Inc()
	}
	s.emitAudit(ctx, donorID, audit.ActionDonationCancelled, "donation", donationID.String())
	return nil
}

// ExpireStale is the sweep entry point; see the sweeper package.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	expired, err := s.donations.ExpireStale(ctx, time.Now())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to expire donations")
	}
	if expired > 0 && s.metrics != nil {
		s.metrics.DonationsExpired.Add(float64(expired))
	}
	return expired, nil
}

func (s *Service) emitAudit(ctx context.Context, actor id.UserID, action audit.Action, entity, entityID string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, audit.Event{
		Actor:    actor.String(),
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", string(action), "error", err)
	}
}

var _ LocationRegistry = (location.Store)(nil)
