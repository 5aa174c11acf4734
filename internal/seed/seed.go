package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/workshophub/internal/app/models"
	"github.com/yigit/workshophub/internal/app/repositories"
	"github.com/yigit/workshophub/internal/pkg/apperrors"
	"github.com/yigit/workshophub/internal/pkg/auth"
)

// DefaultPassword is shared by every seeded account.
const DefaultPassword = "Workshop123"

// Account is a user created at startup when seeding is enabled.
type Account struct {
	Username string
	Role     models.Role
}

// DefaultAccounts is one lecturer and two students.
var DefaultAccounts = []Account{
	{Username: "lecturer", Role: models.RoleLecturer},
	{Username: "student1", Role: models.RoleStudent},
	{Username: "student2", Role: models.RoleStudent},
}

// CreateDefaultData creates the demo accounts and, for a freshly created
// lecturer, one sample workshop. Existing usernames are left untouched.
func CreateDefaultData(ctx context.Context, repos *repositories.Repositories, bcryptCost int, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data (users/workshops)...")
	var finalErr error

	for _, account := range DefaultAccounts {
		user, created, err := ensureUser(ctx, repos.UserRepository, account, bcryptCost)
		if err != nil {
			lgr.Error().Err(err).Str("username", account.Username).Msg("Error creating default user")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		if !created {
			lgr.Debug().Str("username", account.Username).Msg("Default user already exists")
			continue
		}
		lgr.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("Default user created")

		if user.IsLecturer() {
			workshop, err := repos.WorkshopRepository.CreateWorkshop(ctx, &models.Workshop{
				Title:       "Introduction to Go",
				Description: "Hands-on session covering the Go toolchain, modules and testing.",
				LecturerID:  user.ID,
				Date:        time.Now().UTC().AddDate(0, 0, 14).Truncate(24 * time.Hour),
			})
			if err != nil {
				lgr.Error().Err(err).Msg("Error creating sample workshop")
				finalErr = errors.Join(finalErr, err)
				continue
			}
			lgr.Info().Int64("workshopID", workshop.ID).Msg("Sample workshop created")
		}
	}

	return finalErr
}

func ensureUser(ctx context.Context, users repositories.UserRepository, account Account, bcryptCost int) (*models.User, bool, error) {
	existing, err := users.GetUserByUsername(ctx, account.Username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, false, fmt.Errorf("failed to look up %s: %w", account.Username, err)
	}

	hash, err := auth.HashPasswordWithCost(DefaultPassword, bcryptCost)
	if err != nil {
		return nil, false, err
	}

	user, err := users.CreateUser(ctx, &models.User{
		Username: account.Username,
		Password: hash,
		Role:     account.Role,
	})
	if errors.Is(err, apperrors.ErrUsernameTaken) {
		// Lost a race with another instance seeding the same store.
		existing, err := users.GetUserByUsername(ctx, account.Username)
		return existing, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}
