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

const usernameConstraint = "users_username_key"

var userColumns = []string{"id", "username", "password", "role", "created_at"}

// PostgresUserRepository handles user database operations
type PostgresUserRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateUser inserts a user and returns the stored row
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	sql, args, err := r.sb.Insert("users").
		Columns("username", "password", "role").
		Values(user.Username, user.Password, string(user.Role)).
		Suffix("RETURNING " + joinColumns(userColumns)).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create user SQL")
		return nil, fmt.Errorf("failed to build create user query: %w", err)
	}

	created, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, usernameConstraint) {
			return nil, apperrors.ErrUsernameTaken
		}
		logger.Error().Err(err).Str("username", user.Username).Msg("Error executing create user query")
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return created, nil
}

// GetUserByID retrieves a user by ID
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetUserByUsername retrieves a user by username
func (r *PostgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"username": username})
}

func (r *PostgresUserRepository) getOne(ctx context.Context, where squirrel.Eq) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).
		From("users").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get user SQL")
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	user, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Msg("Error scanning user row")
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	var role string
	if err := row.Scan(&user.ID, &user.Username, &user.Password, &role, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	return user, nil
}
