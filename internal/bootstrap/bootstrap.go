package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/workshophub/internal/app/controllers"
	appMigrations "github.com/yigit/workshophub/internal/app/migrations"
	appRepos "github.com/yigit/workshophub/internal/app/repositories"
	appRoutes "github.com/yigit/workshophub/internal/app/routes"
	appServices "github.com/yigit/workshophub/internal/app/services"
	"github.com/yigit/workshophub/internal/config"
	"github.com/yigit/workshophub/internal/db"
	appMiddleware "github.com/yigit/workshophub/internal/middleware"
	pkgAuth "github.com/yigit/workshophub/internal/pkg/auth"
	"github.com/yigit/workshophub/internal/pkg/cache"
	"github.com/yigit/workshophub/internal/pkg/events"
	"github.com/yigit/workshophub/internal/pkg/helpers"
	"github.com/yigit/workshophub/internal/pkg/logger"
	"github.com/yigit/workshophub/internal/pkg/websocket"
	"github.com/yigit/workshophub/internal/seed"
)

const (
	brokerDialAttempts = 5
	brokerDialBackoff  = 2 * time.Second
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos              *appRepos.Repositories
	Services           *appServices.Services
	JWTService         *pkgAuth.JWTService
	StatsCache         cache.StatsCache
	Publisher          events.Publisher
	AuthController     *appControllers.AuthController
	WorkshopController *appControllers.WorkshopController
	LiveHandler        *websocket.Handler
	AuthMiddleware     *appMiddleware.AuthMiddleware
	Logger             zerolog.Logger

	closers []io.Closer
}

// Close releases the live hub, the broker, the cache and the record store, in that order.
func (d *Dependencies) Close() error {
	var errs error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	d.closers = nil
	return errs
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	lgr := logger.Configure(logger.ConfigFromStrings(cfg.Logging.Level, cfg.Logging.Format))
	lgr.Info().
		Str("logLevel", cfg.Logging.Level).
		Str("logFormat", cfg.Logging.Format).
		Str("driver", cfg.Database.Driver).
		Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStorage opens the configured record store. For postgres it also applies
// the embedded migrations. The returned closer is nil for the memory store.
func SetupStorage(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*appRepos.Repositories, io.Closer, error) {
	if !cfg.UsesPostgres() {
		lgr.Info().Msg("Using in-memory record store")
		return appRepos.NewMemoryRepositories(), nil, nil
	}

	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, nil, err
	}

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(database.Pool, lgr)
	if err := migrator.Migrate(ctx, appMigrations.Files()); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		_ = database.Close()
		return nil, nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return appRepos.NewRepositories(database.Pool), database, nil
}

// SetupStatsCache connects to redis when enabled and falls back to the no-op cache otherwise.
func SetupStatsCache(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (cache.StatsCache, error) {
	if !cfg.Redis.Enabled {
		return cache.NoopStatsCache{}, nil
	}
	return cache.NewRedisStatsCache(ctx, cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      helpers.ParseDuration(cfg.Redis.TTL, 5*time.Minute),
	}, lgr)
}

// SetupPublisher connects to RabbitMQ when events are enabled and falls back
// to the no-op publisher otherwise.
func SetupPublisher(cfg *config.Config, lgr zerolog.Logger) (events.Publisher, error) {
	if !cfg.Events.Enabled {
		return events.NoopPublisher{}, nil
	}
	conn, err := events.Dial(cfg.Events.URL, brokerDialAttempts, brokerDialBackoff, lgr)
	if err != nil {
		return nil, err
	}
	publisher, err := events.NewAMQPPublisher(conn, cfg.Events.Exchange, lgr)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return publisher, nil
}

// Setup opens every external resource the configuration asks for, seeds demo
// data when enabled and builds the dependency graph. On error everything that
// was already opened is closed again.
func Setup(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Dependencies, error) {
	var closers []io.Closer
	fail := func(err error) (*Dependencies, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
		return nil, err
	}

	repos, storeCloser, err := SetupStorage(ctx, cfg, lgr)
	if err != nil {
		return fail(fmt.Errorf("failed to setup storage: %w", err))
	}
	if storeCloser != nil {
		closers = append(closers, storeCloser)
	}

	statsCache, err := SetupStatsCache(ctx, cfg, lgr)
	if err != nil {
		return fail(fmt.Errorf("failed to setup stats cache: %w", err))
	}
	closers = append(closers, statsCache)

	broker, err := SetupPublisher(cfg, lgr)
	if err != nil {
		return fail(fmt.Errorf("failed to setup event publisher: %w", err))
	}
	closers = append(closers, broker)

	hub := websocket.NewHub(lgr)
	go hub.Run()
	closers = append(closers, hub)

	if cfg.Seed.Enabled {
		if err := seed.CreateDefaultData(ctx, repos, pkgAuth.BcryptCost, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	deps := BuildDependencies(cfg, repos, statsCache, events.Fanout{broker, hub}, appServices.Options{}, lgr)
	deps.LiveHandler = websocket.NewHandler(hub, repos.WorkshopRepository, cfg.Server.AllowedOrigins, lgr)
	deps.closers = closers
	return deps, nil
}

// BuildDependencies initializes services and controllers on top of the given
// repositories. Voting rules from the configuration override opts.
func BuildDependencies(
	cfg *config.Config,
	repos *appRepos.Repositories,
	statsCache cache.StatsCache,
	publisher events.Publisher,
	opts appServices.Options,
	lgr zerolog.Logger,
) *Dependencies {
	deps := &Dependencies{
		Repos:      repos,
		StatsCache: statsCache,
		Publisher:  publisher,
		Logger:     lgr,
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	opts.RequirePending = opts.RequirePending || cfg.Voting.RequirePending
	deps.Services = appServices.NewServices(repos, deps.JWTService, statsCache, publisher, opts, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.AuthController = appControllers.NewAuthController(deps.Services.AuthService, lgr)
	deps.WorkshopController = appControllers.NewWorkshopController(
		deps.Services.WorkshopService,
		deps.Services.VotingService,
		lgr,
	)

	return deps
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	switch strings.ToLower(cfg.Server.Mode) {
	case "production", "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	lgr.Info().Str("mode", gin.Mode()).Msg("Gin mode configured")

	appMiddleware.RegisterJSONFieldNames()

	router := gin.New()
	router.Use(
		gin.Recovery(),
		appMiddleware.RequestID(),
		appMiddleware.RequestLogger(lgr.With().Str("component", "http").Logger()),
	)

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.WorkshopController,
		deps.LiveHandler,
		deps.AuthMiddleware,
	)

	return router
}
