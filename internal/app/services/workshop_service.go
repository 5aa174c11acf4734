package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/workshophub/internal/app/auth"
	"github.com/yigit/workshophub/internal/app/models"
	"github.com/yigit/workshophub/internal/app/models/dto"
	"github.com/yigit/workshophub/internal/app/repositories"
	"github.com/yigit/workshophub/internal/pkg/apperrors"
	"github.com/yigit/workshophub/internal/pkg/events"
	"github.com/yigit/workshophub/internal/pkg/helpers"
	"github.com/yigit/workshophub/internal/pkg/validation"
)

// WorkshopService defines the interface for workshop operations
type WorkshopService interface {
	CreateWorkshop(ctx context.Context, lecturerID int64, req *dto.CreateWorkshopRequest) (*models.Workshop, error)
	ListWorkshops(ctx context.Context) ([]*models.WorkshopWithStats, error)
	GetWorkshop(ctx context.Context, id int64) (*models.WorkshopWithStats, error)
	UpdateStatus(ctx context.Context, lecturerID, workshopID int64, status models.WorkshopStatus) (*models.Workshop, error)
}

type workshopServiceImpl struct {
	workshopRepo  repositories.WorkshopRepository
	authz         *auth.AuthorizationService
	votingService VotingService
	publisher     events.Publisher
	logger        zerolog.Logger
}

// NewWorkshopService creates a new workshop service instance
func NewWorkshopService(
	workshopRepo repositories.WorkshopRepository,
	authz *auth.AuthorizationService,
	votingService VotingService,
	publisher events.Publisher,
	logger zerolog.Logger,
) WorkshopService {
	return &workshopServiceImpl{
		workshopRepo:  workshopRepo,
		authz:         authz,
		votingService: votingService,
		publisher:     publisher,
		logger:        logger.With().Str("service", "workshop").Logger(),
	}
}

// StatusChange is the payload of the workshop.status_changed event.
type StatusChange struct {
	WorkshopID int64                 `json:"workshopId"`
	LecturerID int64                 `json:"lecturerId"`
	From       models.WorkshopStatus `json:"from"`
	To         models.WorkshopStatus `json:"to"`
}

// CreateWorkshop stores a new workshop owned by the lecturer; it always starts pending
func (s *workshopServiceImpl) CreateWorkshop(ctx context.Context, lecturerID int64, req *dto.CreateWorkshopRequest) (*models.Workshop, error) {
	if err := s.authz.ValidateLecturer(ctx, lecturerID); err != nil {
		return nil, err
	}

	fields := validation.Collect(
		validation.NewStringValidation("title", req.Title).WithMaxLength(validation.TitleMaxLength),
		validation.NewStringValidation("description", req.Description).WithMaxLength(validation.DescriptionMaxLength),
	)
	date, err := helpers.ParseISODate(req.Date)
	if err != nil {
		if fields == nil {
			fields = make(map[string]interface{})
		}
		fields["date"] = apperrors.ErrInvalidDate.Error()
	}
	if fields != nil {
		return nil, apperrors.NewValidationError("Validation failed", fields)
	}

	workshop, err := s.workshopRepo.CreateWorkshop(ctx, &models.Workshop{
		Title:       req.Title,
		Description: req.Description,
		LecturerID:  lecturerID,
		Status:      models.StatusPending,
		Date:        date,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating workshop: %w", err)
	}

	if err := s.publisher.Publish(ctx, events.NewEvent(events.WorkshopCreated, workshop.ID, workshop)); err != nil {
		s.logger.Warn().Err(err).Int64("workshopID", workshop.ID).Msg("Failed to publish event")
	}
	s.logger.Info().Int64("workshopID", workshop.ID).Int64("lecturerID", lecturerID).Msg("Workshop created")
	return workshop, nil
}

// ListWorkshops returns every workshop with its current tally
func (s *workshopServiceImpl) ListWorkshops(ctx context.Context) ([]*models.WorkshopWithStats, error) {
	workshops, err := s.workshopRepo.GetWorkshops(ctx)
	if err != nil {
		return nil, fmt.Errorf("error retrieving workshops: %w", err)
	}

	result := make([]*models.WorkshopWithStats, 0, len(workshops))
	for _, w := range workshops {
		enriched, err := s.withStats(ctx, w)
		if err != nil {
			return nil, err
		}
		result = append(result, enriched)
	}
	return result, nil
}

// GetWorkshop returns one workshop with its current tally
func (s *workshopServiceImpl) GetWorkshop(ctx context.Context, id int64) (*models.WorkshopWithStats, error) {
	workshop, err := s.workshopRepo.GetWorkshopByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrWorkshopNotFound) {
			return nil, apperrors.ErrWorkshopNotFound
		}
		return nil, fmt.Errorf("error retrieving workshop: %w", err)
	}
	return s.withStats(ctx, workshop)
}

// UpdateStatus overwrites a workshop's status. Any transition is allowed but
// only the owning lecturer may perform it.
func (s *workshopServiceImpl) UpdateStatus(ctx context.Context, lecturerID, workshopID int64, status models.WorkshopStatus) (*models.Workshop, error) {
	if !status.IsValid() {
		return nil, apperrors.NewValidationError(apperrors.ErrInvalidStatus.Error(), map[string]interface{}{
			"status": apperrors.ErrInvalidStatus.Error(),
		})
	}
	current, err := s.authz.ValidateWorkshopOwnership(ctx, workshopID, lecturerID)
	if err != nil {
		return nil, err
	}

	updated, err := s.workshopRepo.UpdateWorkshopStatus(ctx, workshopID, status)
	if err != nil {
		if errors.Is(err, apperrors.ErrWorkshopNotFound) {
			return nil, apperrors.ErrWorkshopNotFound
		}
		return nil, fmt.Errorf("error updating workshop status: %w", err)
	}

	change := StatusChange{WorkshopID: workshopID, LecturerID: lecturerID, From: current.Status, To: updated.Status}
	if err := s.publisher.Publish(ctx, events.NewEvent(events.WorkshopStatusChanged, workshopID, change)); err != nil {
		s.logger.Warn().Err(err).Int64("workshopID", workshopID).Msg("Failed to publish event")
	}
	s.logger.Info().
		Int64("workshopID", workshopID).
		Str("from", string(current.Status)).
		Str("to", string(updated.Status)).
		Msg("Workshop status updated")
	return updated, nil
}

func (s *workshopServiceImpl) withStats(ctx context.Context, w *models.Workshop) (*models.WorkshopWithStats, error) {
	stats, err := s.votingService.GetVotingStats(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	return &models.WorkshopWithStats{Workshop: *w, VotingStats: stats}, nil
}
