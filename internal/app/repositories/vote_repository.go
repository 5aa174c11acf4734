package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/workshophub/internal/app/models"
	"github.com/yigit/workshophub/internal/pkg/apperrors"
	"github.com/yigit/workshophub/internal/pkg/dberrors"
	"github.com/yigit/workshophub/internal/pkg/logger"
)

// studentWorkshopConstraint backs the one-vote-per-student rule at the storage level.
const studentWorkshopConstraint = "student_votes_student_workshop_key"

var voteColumns = []string{"id", "workshop_id", "student_id", "approved"}

// PostgresVoteRepository handles student vote database operations
type PostgresVoteRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewPostgresVoteRepository creates a new PostgresVoteRepository
func NewPostgresVoteRepository(db *pgxpool.Pool) *PostgresVoteRepository {
	return &PostgresVoteRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateVote inserts a vote and returns the stored row
func (r *PostgresVoteRepository) CreateVote(ctx context.Context, vote *models.StudentVote) (*models.StudentVote, error) {
	sql, args, err := r.sb.Insert("student_votes").
		Columns("workshop_id", "student_id", "approved").
		Values(vote.WorkshopID, vote.StudentID, vote.Approved).
		Suffix("RETURNING " + joinColumns(voteColumns)).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create vote SQL")
		return nil, fmt.Errorf("failed to build create vote query: %w", err)
	}

	created, err := scanVote(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if mapped := voteConstraintError(err); mapped != nil {
			return nil, mapped
		}
		logger.Error().Err(err).
			Int64("workshopID", vote.WorkshopID).
			Int64("studentID", vote.StudentID).
			Msg("Error executing create vote query")
		return nil, fmt.Errorf("error creating vote: %w", err)
	}
	return created, nil
}

// voteConstraintError translates constraint violations raised by a vote insert.
// A racing second vote by the same student trips the unique key.
func voteConstraintError(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, studentWorkshopConstraint):
		return apperrors.ErrDuplicateVote
	case dberrors.IsForeignKeyError(err):
		return apperrors.ErrWorkshopNotFound
	}
	return nil
}

// GetVotesByWorkshop retrieves all votes cast on a workshop
func (r *PostgresVoteRepository) GetVotesByWorkshop(ctx context.Context, workshopID int64) ([]*models.StudentVote, error) {
	sql, args, err := r.sb.Select(voteColumns...).
		From("student_votes").
		Where(squirrel.Eq{"workshop_id": workshopID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get votes by workshop SQL")
		return nil, fmt.Errorf("failed to build get votes query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("workshopID", workshopID).Msg("Error executing get votes query")
		return nil, fmt.Errorf("error querying votes: %w", err)
	}
	defer rows.Close()

	votes := []*models.StudentVote{}
	for rows.Next() {
		vote, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning vote row: %w", err)
		}
		votes = append(votes, vote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vote rows: %w", err)
	}
	return votes, nil
}

// GetVoteByStudentAndWorkshop retrieves the single vote a student cast on a workshop
func (r *PostgresVoteRepository) GetVoteByStudentAndWorkshop(ctx context.Context, studentID, workshopID int64) (*models.StudentVote, error) {
	sql, args, err := r.sb.Select(voteColumns...).
		From("student_votes").
		Where(squirrel.Eq{"student_id": studentID, "workshop_id": workshopID}).
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get vote SQL")
		return nil, fmt.Errorf("failed to build get vote query: %w", err)
	}

	vote, err := scanVote(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrVoteNotFound
		}
		return nil, fmt.Errorf("error getting vote: %w", err)
	}
	return vote, nil
}

func scanVote(row pgx.Row) (*models.StudentVote, error) {
	v := &models.StudentVote{}
	if err := row.Scan(&v.ID, &v.WorkshopID, &v.StudentID, &v.Approved); err != nil {
		return nil, err
	}
	return v, nil
}
