package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/workshophub/internal/app/models"
	"github.com/yigit/workshophub/internal/pkg/apperrors"
	"github.com/yigit/workshophub/internal/pkg/dberrors"
	"github.com/yigit/workshophub/internal/pkg/logger"
)

var workshopColumns = []string{"id", "title", "description", "lecturer_id", "status", "date"}

// PostgresWorkshopRepository handles workshop database operations
type PostgresWorkshopRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewPostgresWorkshopRepository creates a new PostgresWorkshopRepository
func NewPostgresWorkshopRepository(db *pgxpool.Pool) *PostgresWorkshopRepository {
	return &PostgresWorkshopRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateWorkshop inserts a workshop; the status column is always written as pending
func (r *PostgresWorkshopRepository) CreateWorkshop(ctx context.Context, workshop *models.Workshop) (*models.Workshop, error) {
	sql, args, err := r.sb.Insert("workshops").
		Columns("title", "description", "lecturer_id", "status", "date").
		Values(workshop.Title, workshop.Description, workshop.LecturerID, string(models.StatusPending), workshop.Date).
		Suffix("RETURNING " + joinColumns(workshopColumns)).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create workshop SQL")
		return nil, fmt.Errorf("failed to build create workshop query: %w", err)
	}

	created, err := scanWorkshop(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsForeignKeyError(err) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Int64("lecturerID", workshop.LecturerID).Msg("Error executing create workshop query")
		return nil, fmt.Errorf("error creating workshop: %w", err)
	}
	return created, nil
}

// GetWorkshops retrieves all workshops in insertion order
func (r *PostgresWorkshopRepository) GetWorkshops(ctx context.Context) ([]*models.Workshop, error) {
	sql, args, err := r.sb.Select(workshopColumns...).
		From("workshops").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get workshops SQL")
		return nil, fmt.Errorf("failed to build get workshops query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing get workshops query")
		return nil, fmt.Errorf("error querying workshops: %w", err)
	}
	defer rows.Close()

	workshops := []*models.Workshop{}
	for rows.Next() {
		workshop, err := scanWorkshop(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning workshop row")
			return nil, fmt.Errorf("error scanning workshop row: %w", err)
		}
		workshops = append(workshops, workshop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workshop rows: %w", err)
	}
	return workshops, nil
}

// GetWorkshopByID retrieves a workshop by ID
func (r *PostgresWorkshopRepository) GetWorkshopByID(ctx context.Context, id int64) (*models.Workshop, error) {
	sql, args, err := r.sb.Select(workshopColumns...).
		From("workshops").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get workshop by ID SQL")
		return nil, fmt.Errorf("failed to build get workshop query: %w", err)
	}

	workshop, err := scanWorkshop(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWorkshopNotFound
		}
		logger.Error().Err(err).Int64("workshopID", id).Msg("Error scanning workshop row")
		return nil, fmt.Errorf("error getting workshop by ID: %w", err)
	}
	return workshop, nil
}

// UpdateWorkshopStatus overwrites the status and returns the updated row
func (r *PostgresWorkshopRepository) UpdateWorkshopStatus(ctx context.Context, id int64, status models.WorkshopStatus) (*models.Workshop, error) {
	sql, args, err := r.sb.Update("workshops").
		Set("status", string(status)).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(workshopColumns)).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update workshop status SQL")
		return nil, fmt.Errorf("failed to build update workshop status query: %w", err)
	}

	workshop, err := scanWorkshop(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWorkshopNotFound
		}
		logger.Error().Err(err).Int64("workshopID", id).Str("status", string(status)).Msg("Error executing update workshop status query")
		return nil, fmt.Errorf("error updating workshop status: %w", err)
	}
	return workshop, nil
}

func scanWorkshop(row pgx.Row) (*models.Workshop, error) {
	w := &models.Workshop{}
	var status string
	if err := row.Scan(&w.ID, &w.Title, &w.Description, &w.LecturerID, &status, &w.Date); err != nil {
		return nil, err
	}
	w.Status = models.WorkshopStatus(status)
	w.Date = w.Date.UTC()
	return w, nil
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}
