package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"foodbridge/internal/audit"
	donationmodels "foodbridge/internal/donation/models"
	donationstore "foodbridge/internal/donation/store"
	"foodbridge/internal/location"
	"foodbridge/internal/matching/store"
	needmodels "foodbridge/internal/need/models"
	needstore "foodbridge/internal/need/store"
	notifmodels "foodbridge/internal/notification/models"
	"foodbridge/internal/platform/metrics"
	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/sentinel"
)

// candidateScan bounds how many open listings an auto-match pass inspects.
const candidateScan = 100

// LocationRegistry validates recipient-supplied dropoff locations.
type LocationRegistry interface {
	Exists(ctx context.Context, locationID id.LocationID) (bool, error)
}

// Notifier is the slice of the notification dispatcher matching needs:
// emitting proposals and donor notices, and resolving proposals on reject.
type Notifier interface {
	Emit(ctx context.Context, userID id.UserID, kind notifmodels.Kind, message string, meta notifmodels.Meta) (*notifmodels.Notification, error)
	Get(ctx context.Context, notificationID id.NotificationID) (*notifmodels.Notification, error)
	MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error
}

// Service is the matching engine. Auto-match passes are advisory and emit
// proposal notifications only; the donation does not change state until a
// recipient commits through Accept, Change, or Claim. The commit itself is
// delegated to the Committer, which guarantees exactly one winner.
type Service struct {
	committer store.Committer
	donations donationstore.Store
	needs     needstore.Store
	locations LocationRegistry
	notifier  Notifier
	logger    *slog.Logger
	metrics   *metrics.Metrics
	audit     audit.Publisher
	tracer    trace.Tracer
}

type Option func(s *Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func New(committer store.Committer, donations donationstore.Store, needs needstore.Store, locations LocationRegistry, notifier Notifier, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		committer: committer,
		donations: donations,
		needs:     needs,
		locations: locations,
		notifier:  notifier,
		logger:    logger,
		tracer:    otel.Tracer("foodbridge/matching"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProposeForDonation scans open needs for the donation's food type, oldest
// first, and sends the candidate recipient a proposal notification. The
// donation stays PENDING.
func (s *Service) ProposeForDonation(ctx context.Context, donation *donationmodels.Donation) error {
	needs, err := s.needs.ListOpenByFoodType(ctx, donation.FoodType, id.Page{Limit: 1})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan open needs")
	}
	if len(needs) == 0 {
		return nil
	}
	return s.emitProposal(ctx, needs[0], donation)
}

// ProposeForNeed scans open donations for the need's food type, oldest first,
// and sends the need's recipient a proposal for the first match.
func (s *Service) ProposeForNeed(ctx context.Context, need *needmodels.Need) error {
	donations, err := s.donations.ListOpen(ctx, time.Now(), id.Page{Limit: candidateScan})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan open donations")
	}
	for _, donation := range donations {
		if strings.EqualFold(donation.FoodType, need.FoodType) {
			return s.emitProposal(ctx, need, donation)
		}
	}
	return nil
}

func (s *Service) emitProposal(ctx context.Context, need *needmodels.Need, donation *donationmodels.Donation) error {
	needID := need.ID
	donationID := donation.ID
	_, err := s.notifier.Emit(ctx, need.RecipientID, notifmodels.KindMatchProposal,
		"A donation of "+donation.FoodType+" matches your request",
		notifmodels.Meta{NeedID: &needID, DonationID: &donationID})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ProposalsEmitted.Inc()
	}
	s.emitAudit(ctx, need.RecipientID, audit.ActionProposalEmitted, "donation", donation.ID.String())
	return nil
}

// AcceptProposal commits a proposed match using the need's stored dropoff
// location and contact phone.
func (s *Service) AcceptProposal(ctx context.Context, recipientID id.UserID, needID id.NeedID, donationID id.DonationID) (*store.CommitResult, error) {
	need, err := s.loadOwnOpenNeed(ctx, recipientID, needID)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, "accept", store.CommitParams{
		DonationID:        donationID,
		RecipientID:       recipientID,
		NeedID:            &needID,
		TargetStatus:      donationmodels.StatusMatched,
		DropoffLocationID: need.DropoffLocationID,
		RecipientPhone:    need.ContactPhone,
		Notes:             need.Notes,
	}, notifmodels.KindDonationMatched, "Your donation has been matched with a recipient")
}

// ChangeProposal commits a proposed match with recipient-supplied delivery
// parameters instead of the need's stored ones.
func (s *Service) ChangeProposal(ctx context.Context, recipientID id.UserID, needID id.NeedID, donationID id.DonationID, dropoffLocationID id.LocationID, phone, notes string) (*store.CommitResult, error) {
	if _, err := s.loadOwnOpenNeed(ctx, recipientID, needID); err != nil {
		return nil, err
	}
	if err := s.validateDeliveryParams(ctx, dropoffLocationID, phone); err != nil {
		return nil, err
	}
	return s.commit(ctx, "change", store.CommitParams{
		DonationID:        donationID,
		RecipientID:       recipientID,
		NeedID:            &needID,
		TargetStatus:      donationmodels.StatusMatched,
		DropoffLocationID: dropoffLocationID,
		RecipientPhone:    phone,
		Notes:             notes,
	}, notifmodels.KindDonationMatched, "Your donation has been matched with a recipient")
}

// ClaimDonation is the direct path: no proposal, no need. The recipient
// supplies the delivery parameters and the donation goes straight to CLAIMED.
func (s *Service) ClaimDonation(ctx context.Context, recipientID id.UserID, donationID id.DonationID, dropoffLocationID id.LocationID, phone, notes string) (*store.CommitResult, error) {
	if err := s.validateDeliveryParams(ctx, dropoffLocationID, phone); err != nil {
		return nil, err
	}
	return s.commit(ctx, "claim", store.CommitParams{
		DonationID:        donationID,
		RecipientID:       recipientID,
		TargetStatus:      donationmodels.StatusClaimed,
		DropoffLocationID: dropoffLocationID,
		RecipientPhone:    phone,
		Notes:             notes,
	}, notifmodels.KindDonationClaimed, "Your donation has been claimed by a recipient")
}

// RejectProposal resolves a proposal by marking its notification read. The
// donation is untouched and stays claimable by anyone.
func (s *Service) RejectProposal(ctx context.Context, recipientID id.UserID, notificationID id.NotificationID) error {
	notification, err := s.notifier.Get(ctx, notificationID)
	if err != nil {
		return err
	}
	if notification.UserID != recipientID || notification.Kind != notifmodels.KindMatchProposal {
		return dErrors.New(dErrors.CodeNotFound, "proposal not found")
	}
	if err := s.notifier.MarkRead(ctx, recipientID, notificationID); err != nil {
		return err
	}
	s.emitAudit(ctx, recipientID, audit.ActionProposalRejected, "notification", notificationID.String())
	return nil
}

// Mine returns the donations matched or claimed by the recipient.
func (s *Service) Mine(ctx context.Context, recipientID id.UserID, page id.Page) ([]*donationmodels.Donation, error) {
	donations, err := s.donations.ListByRecipient(ctx, recipientID, page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list matched donations")
	}
	return donations, nil
}

func (s *Service) commit(ctx context.Context, path string, params store.CommitParams, donorKind notifmodels.Kind, donorMessage string) (*store.CommitResult, error) {
	ctx, span := s.tracer.Start(ctx, "matching.commit",
		trace.WithAttributes(
			attribute.String("donation.id", params.DonationID.String()),
			attribute.String("match.path", path),
		))
	defer span.End()

	params.Now = time.Now()
	start := params.Now

	result, err := s.committer.CommitMatch(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "donation not found")
		case errors.Is(err, sentinel.ErrExpired):
			return nil, dErrors.New(dErrors.CodeConflict, "donation expired")
		case errors.Is(err, sentinel.ErrConflict):
			if s.metrics != nil {
				s.metrics.MatchConflicts.Inc()
			}
			return nil, dErrors.New(dErrors.CodeConflict, "donation no longer available")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit match")
		}
	}

	if s.metrics != nil {
		s.metrics.MatchesCommitted.WithLabelValues(path).Inc()
		s.metrics.MatchCommitDuration.Observe(time.Since(start).Seconds())
	}
	s.emitAudit(ctx, params.RecipientID, audit.ActionMatchCommitted, "donation", params.DonationID.String())

	donationID := result.Donation.ID
	deliveryID := result.Delivery.ID
	if _, err := s.notifier.Emit(ctx, result.Donation.DonorID, donorKind, donorMessage,
		notifmodels.Meta{DonationID: &donationID, DeliveryID: &deliveryID}); err != nil {
		s.logger.WarnContext(ctx, "failed to notify donor of committed match",
			"donation_id", result.Donation.ID,
			"error", err,
		)
	}
	return result, nil
}

func (s *Service) loadOwnOpenNeed(ctx context.Context, recipientID id.UserID, needID id.NeedID) (*needmodels.Need, error) {
	need, err := s.needs.FindByID(ctx, needID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "need not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load need")
	}
	if need.RecipientID != recipientID {
		return nil, dErrors.New(dErrors.CodeNotFound, "need not found")
	}
	if !need.IsOpen() {
		return nil, dErrors.New(dErrors.CodeConflict, "need has already been matched")
	}
	return need, nil
}

func (s *Service) validateDeliveryParams(ctx context.Context, dropoffLocationID id.LocationID, phone string) error {
	if strings.TrimSpace(phone) == "" {
		return dErrors.New(dErrors.CodeValidation, "contact phone cannot be empty")
	}
	if dropoffLocationID.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "dropoff location is required")
	}
	exists, err := s.locations.Exists(ctx, dropoffLocationID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check location")
	}
	if !exists {
		return dErrors.New(dErrors.CodeValidation, "unknown dropoff location")
	}
	return nil
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
