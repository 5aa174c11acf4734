package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/yigit/workshophub/internal/app/models"
	"github.com/yigit/workshophub/internal/app/repositories"
	"github.com/yigit/workshophub/internal/pkg/apperrors"
	"github.com/yigit/workshophub/internal/pkg/logger"
)

// Authorization errors specific to workshop actions
var (
	ErrNotLecturer = apperrors.NewForbiddenError("only lecturers can perform this action")
	ErrNotStudent  = apperrors.NewForbiddenError("only students can perform this action")
)

// AuthorizationService handles authorization operations
type AuthorizationService struct {
	userRepo     repositories.UserRepository
	workshopRepo repositories.WorkshopRepository
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(userRepo repositories.UserRepository, workshopRepo repositories.WorkshopRepository) *AuthorizationService {
	return &AuthorizationService{
		userRepo:     userRepo,
		workshopRepo: workshopRepo,
	}
}

// userRole loads the caller; a token whose user vanished counts as unauthenticated
func (s *AuthorizationService) userRole(ctx context.Context, userID int64) (models.Role, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return "", apperrors.ErrUnauthenticated
		}
		logger.Error().Err(err).Int64("userID", userID).Msg("Error getting user by ID in authorization check")
		return "", fmt.Errorf("error loading user: %w", err)
	}
	return user.Role, nil
}

// ValidateLecturer returns ErrNotLecturer unless the user is a lecturer
func (s *AuthorizationService) ValidateLecturer(ctx context.Context, userID int64) error {
	role, err := s.userRole(ctx, userID)
	if err != nil {
		return err
	}
	if role != models.RoleLecturer {
		return ErrNotLecturer
	}
	return nil
}

// ValidateStudent returns ErrNotStudent unless the user is a student
func (s *AuthorizationService) ValidateStudent(ctx context.Context, userID int64) error {
	role, err := s.userRole(ctx, userID)
	if err != nil {
		return err
	}
	if role != models.RoleStudent {
		return ErrNotStudent
	}
	return nil
}

// ValidateWorkshopOwnership checks the lecturer owns the workshop and returns it
func (s *AuthorizationService) ValidateWorkshopOwnership(ctx context.Context, workshopID, lecturerID int64) (*models.Workshop, error) {
	if err := s.ValidateLecturer(ctx, lecturerID); err != nil {
		return nil, err
	}

	workshop, err := s.workshopRepo.GetWorkshopByID(ctx, workshopID)
	if err != nil {
		if errors.Is(err, apperrors.ErrWorkshopNotFound) {
			return nil, apperrors.ErrWorkshopNotFound
		}
		logger.Error().Err(err).Int64("workshopID", workshopID).Msg("Error getting workshop in ownership check")
		return nil, fmt.Errorf("error retrieving workshop: %w", err)
	}

	if workshop.LecturerID != lecturerID {
		logger.Warn().
			Int64("workshopID", workshopID).
			Int64("ownerID", workshop.LecturerID).
			Int64("callerID", lecturerID).
			Msg("Lecturer tried to modify a workshop they do not own")
		return nil, apperrors.ErrNotWorkshopOwner
	}
	return workshop, nil
}
