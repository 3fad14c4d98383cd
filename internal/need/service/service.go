package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"foodbridge/internal/location"
	"foodbridge/internal/need/models"
	"foodbridge/internal/need/store"
	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/sentinel"
)

// LocationRegistry validates referenced dropoff locations.
type LocationRegistry interface {
	Exists(ctx context.Context, locationID id.LocationID) (bool, error)
}

// AutoMatcher kicks off a matching pass for a freshly posted need. Advisory;
// its failure never fails the creation.
type AutoMatcher interface {
	ProposeForNeed(ctx context.Context, need *models.Need) error
}

// Service owns need CRUD. Consumption belongs to matching; this service only
// creates, edits, and deletes open needs.
type Service struct {
	needs     store.Store
	locations LocationRegistry
	matcher   AutoMatcher
	logger    *slog.Logger
}

type Option func(s *Service)

func WithMatcher(matcher AutoMatcher) Option {
	return func(s *Service) { s.matcher = matcher }
}

func New(needs store.Store, locations LocationRegistry, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{needs: needs, locations: locations, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries the recipient-supplied request fields.
type CreateParams struct {
	FoodType          string
	Quantity          string
	DropoffLocationID id.LocationID
	ContactPhone      string
	Notes             string
}

// Create posts a new need and runs an advisory auto-match pass.
func (s *Service) Create(ctx context.Context, recipientID id.UserID, params CreateParams) (*models.Need, error) {
	need, err := models.NewNeed(
		id.NewNeedID(), recipientID,
		params.FoodType, params.Quantity, params.DropoffLocationID,
		params.ContactPhone, params.Notes, time.Now(),
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.checkLocation(ctx, need.DropoffLocationID); err != nil {
		return nil, err
	}

	if err := s.needs.Create(ctx, need); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create need")
	}

	if s.matcher != nil {
		if err := s.matcher.ProposeForNeed(ctx, need); err != nil {
			s.logger.WarnContext(ctx, "auto-match pass failed for new need",
				"need_id", need.ID,
				"error", err,
			)
		}
	}

	return need, nil
}

// Get returns a single need.
func (s *Service) Get(ctx context.Context, needID id.NeedID) (*models.Need, error) {
	need, err := s.needs.FindByID(ctx, needID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "need not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load need")
	}
	return need, nil
}

// ListMine returns the recipient's own needs, oldest first.
func (s *Service) ListMine(ctx context.Context, recipientID id.UserID, page id.Page) ([]*models.Need, error) {
	needs, err := s.needs.ListByRecipient(ctx, recipientID, page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list needs")
	}
	return needs, nil
}

// Update edits the recipient's own need while it is still unmatched.
func (s *Service) Update(ctx context.Context, recipientID id.UserID, needID id.NeedID, params CreateParams) (*models.Need, error) {
	// Reuse the constructor's validation without persisting its result.
	if _, err := models.NewNeed(needID, recipientID, params.FoodType, params.Quantity, params.DropoffLocationID, params.ContactPhone, params.Notes, time.Now()); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}
	if err := s.checkLocation(ctx, params.DropoffLocationID); err != nil {
		return nil, err
	}

	need, err := s.needs.UpdateIfOpen(ctx, needID, recipientID, store.UpdateParams{
		FoodType:          params.FoodType,
		Quantity:          params.Quantity,
		DropoffLocationID: params.DropoffLocationID,
		ContactPhone:      params.ContactPhone,
		Notes:             params.Notes,
	}, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "need not found")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "need has already been matched")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update need")
		}
	}
	return need, nil
}

// Delete removes the recipient's own need while it is still unmatched.
func (s *Service) Delete(ctx context.Context, recipientID id.UserID, needID id.NeedID) error {
	err := s.needs.DeleteIfOpen(ctx, needID, recipientID)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "need not found")
		case errors.Is(err, sentinel.ErrConflict):
			return dErrors.New(dErrors.CodeConflict, "need has already been matched")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete need")
		}
	}
	return nil
}

func (s *Service) checkLocation(ctx context.Context, locationID id.LocationID) error {
	exists, err := s.locations.Exists(ctx, locationID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check location")
	}
	if !exists {
		return dErrors.New(dErrors.CodeValidation, "unknown dropoff location")
	}
	return nil
}

var _ LocationRegistry = (location.Store)(nil)
