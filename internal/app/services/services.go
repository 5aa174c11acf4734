package services

import (
	"github.com/rs/zerolog"
	appauth "github.com/yigit/workshophub/internal/app/auth"
	"github.com/yigit/workshophub/internal/app/repositories"
	"github.com/yigit/workshophub/internal/pkg/auth"
	"github.com/yigit/workshophub/internal/pkg/cache"
	"github.com/yigit/workshophub/internal/pkg/events"
)

// Services defined in this package:
// - AuthService: registration, login, token refresh and logout
// - VotingService: vote casting and tally aggregation
// - WorkshopService: workshop creation, reads enriched with tallies, status transitions

// Options tunes business rules that are configurable at startup.
type Options struct {
	// RequirePending rejects votes on workshops that already left the pending status.
	RequirePending bool
	// BcryptCost overrides the password hashing cost; zero means auth.BcryptCost.
	BcryptCost int
}

// Services holds all the service instances
type Services struct {
	AuthService     AuthService
	VotingService   VotingService
	WorkshopService WorkshopService
}

// NewServices wires every service on top of the repositories.
// A nil cache or publisher is replaced by its no-op implementation.
func NewServices(
	repos *repositories.Repositories,
	jwtService *auth.JWTService,
	statsCache cache.StatsCache,
	publisher events.Publisher,
	opts Options,
	logger zerolog.Logger,
) *Services {
	if statsCache == nil {
		statsCache = cache.NoopStatsCache{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	authz := appauth.NewAuthorizationService(repos.UserRepository, repos.WorkshopRepository)

	votingService := NewVotingService(
		repos.VoteRepository,
		repos.WorkshopRepository,
		authz,
		statsCache,
		publisher,
		opts.RequirePending,
		logger,
	)

	return &Services{
		AuthService: NewAuthService(
			repos.UserRepository,
			repos.TokenRepository,
			jwtService,
			opts.BcryptCost,
			logger,
		),
		VotingService: votingService,
		WorkshopService: NewWorkshopService(
			repos.WorkshopRepository,
			authz,
			votingService,
			publisher,
			logger,
		),
	}
}
