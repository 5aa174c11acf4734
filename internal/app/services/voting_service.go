package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/workshophub/internal/app/auth"
	"github.com/yigit/workshophub/internal/app/models"
	"github.com/yigit/workshophub/internal/app/repositories"
	"github.com/yigit/workshophub/internal/pkg/apperrors"
	"github.com/yigit/workshophub/internal/pkg/cache"
	"github.com/yigit/workshophub/internal/pkg/events"
)

// VotingService defines the interface for vote operations
type VotingService interface {
	CastVote(ctx context.Context, studentID, workshopID int64, approved bool) (*models.StudentVote, error)
	GetVotingStats(ctx context.Context, workshopID int64) (models.VotingStats, error)
}

type votingServiceImpl struct {
	voteRepo       repositories.VoteRepository
	workshopRepo   repositories.WorkshopRepository
	authz          *auth.AuthorizationService
	statsCache     cache.StatsCache
	publisher      events.Publisher
	requirePending bool
	logger         zerolog.Logger
}

// NewVotingService creates a new voting service instance
func NewVotingService(
	voteRepo repositories.VoteRepository,
	workshopRepo repositories.WorkshopRepository,
	authz *auth.AuthorizationService,
	statsCache cache.StatsCache,
	publisher events.Publisher,
	requirePending bool,
	logger zerolog.Logger,
) VotingService {
	return &votingServiceImpl{
		voteRepo:       voteRepo,
		workshopRepo:   workshopRepo,
		authz:          authz,
		statsCache:     statsCache,
		publisher:      publisher,
		requirePending: requirePending,
		logger:         logger.With().Str("service", "voting").Logger(),
	}
}

// CastVote records a student's decision on a workshop. A student votes at most
// once per workshop; the store rejects a racing duplicate as well.
func (s *votingServiceImpl) CastVote(ctx context.Context, studentID, workshopID int64, approved bool) (*models.StudentVote, error) {
	if err := s.authz.ValidateStudent(ctx, studentID); err != nil {
		return nil, err
	}

	workshop, err := s.workshopRepo.GetWorkshopByID(ctx, workshopID)
	if err != nil {
		if errors.Is(err, apperrors.ErrWorkshopNotFound) {
			return nil, apperrors.ErrWorkshopNotFound
		}
		return nil, fmt.Errorf("error retrieving workshop: %w", err)
	}

	if s.requirePending && workshop.Status != models.StatusPending {
		return nil, apperrors.ErrVotingClosed
	}

	_, err = s.voteRepo.GetVoteByStudentAndWorkshop(ctx, studentID, workshopID)
	switch {
	case err == nil:
		return nil, apperrors.ErrDuplicateVote
	case !errors.Is(err, apperrors.ErrVoteNotFound):
		return nil, fmt.Errorf("error checking existing vote: %w", err)
	}

	vote, err := s.voteRepo.CreateVote(ctx, &models.StudentVote{
		WorkshopID: workshopID,
		StudentID:  studentID,
		Approved:   approved,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateVote) {
			return nil, apperrors.ErrDuplicateVote
		}
		if errors.Is(err, apperrors.ErrWorkshopNotFound) {
			return nil, apperrors.ErrWorkshopNotFound
		}
		return nil, fmt.Errorf("error creating vote: %w", err)
	}

	if err := s.statsCache.Invalidate(ctx, workshopID); err != nil {
		s.logger.Warn().Err(err).Int64("workshopID", workshopID).Msg("Failed to invalidate cached stats")
	}
	s.publish(ctx, events.NewEvent(events.VoteCast, workshopID, vote))

	s.logger.Info().
		Int64("workshopID", workshopID).
		Int64("studentID", studentID).
		Bool("approved", approved).
		Msg("Vote cast")
	return vote, nil
}

// GetVotingStats returns the tally for a workshop. Unknown ids yield a zero tally.
// A tally computed from the store is cached only if no vote landed meanwhile.
func (s *votingServiceImpl) GetVotingStats(ctx context.Context, workshopID int64) (models.VotingStats, error) {
	stats, err := s.statsCache.Get(ctx, workshopID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn().Err(err).Int64("workshopID", workshopID).Msg("Stats cache read failed, falling back to store")
	}

	generation, genErr := s.statsCache.Generation(ctx, workshopID)
	if genErr != nil {
		s.logger.Warn().Err(genErr).Int64("workshopID", workshopID).Msg("Stats cache generation unavailable, skipping fill")
	}

	votes, err := s.voteRepo.GetVotesByWorkshop(ctx, workshopID)
	if err != nil {
		return models.VotingStats{}, fmt.Errorf("error retrieving votes: %w", err)
	}
	stats = models.ComputeVotingStats(votes)

	if genErr != nil {
		return stats, nil
	}
	switch err := s.statsCache.Fill(ctx, workshopID, generation, stats); {
	case errors.Is(err, cache.ErrStaleFill):
		s.logger.Debug().Int64("workshopID", workshopID).Msg("Tally changed while computing, not cached")
	case err != nil:
		s.logger.Warn().Err(err).Int64("workshopID", workshopID).Msg("Failed to cache stats")
	}
	return stats, nil
}

// publish never fails the caller; broker problems are only logged
func (s *votingServiceImpl) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event", event.Type).Msg("Failed to publish event")
	}
}
