package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/workshophub/internal/app/models"
	"github.com/yigit/workshophub/internal/app/repositories/memory"
)

// UserRepository stores user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// WorkshopRepository stores workshops. CreateWorkshop always stores status pending and
// UpdateWorkshopStatus does not look at the previous status.
type WorkshopRepository interface {
	CreateWorkshop(ctx context.Context, workshop *models.Workshop) (*models.Workshop, error)
	GetWorkshops(ctx context.Context) ([]*models.Workshop, error)
	GetWorkshopByID(ctx context.Context, id int64) (*models.Workshop, error)
	UpdateWorkshopStatus(ctx context.Context, id int64, status models.WorkshopStatus) (*models.Workshop, error)
}

// VoteRepository stores student votes. Votes are never updated or deleted.
type VoteRepository interface {
	CreateVote(ctx context.Context, vote *models.StudentVote) (*models.StudentVote, error)
	GetVotesByWorkshop(ctx context.Context, workshopID int64) ([]*models.StudentVote, error)
	GetVoteByStudentAndWorkshop(ctx context.Context, studentID, workshopID int64) (*models.StudentVote, error)
}

// TokenRepository stores refresh tokens.
type TokenRepository interface {
	CreateToken(ctx context.Context, token string, userID int64, expiryDate time.Time) error
	GetTokenByValue(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeToken(ctx context.Context, token string) error
	RevokeAllUserTokens(ctx context.Context, userID int64) error
}

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository     UserRepository
	WorkshopRepository WorkshopRepository
	VoteRepository     VoteRepository
	TokenRepository    TokenRepository
}

// NewRepositories initializes the PostgreSQL-backed repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:     NewPostgresUserRepository(db),
		WorkshopRepository: NewPostgresWorkshopRepository(db),
		VoteRepository:     NewPostgresVoteRepository(db),
		TokenRepository:    NewPostgresTokenRepository(db),
	}
}

// NewMemoryRepositories backs every repository with a single in-process store.
func NewMemoryRepositories() *Repositories {
	store := memory.NewStore()
	return &Repositories{
		UserRepository:     store,
		WorkshopRepository: store,
		VoteRepository:     store,
		TokenRepository:    store,
	}
}
