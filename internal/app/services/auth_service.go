package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/workshophub/internal/app/models"
	"github.com/yigit/workshophub/internal/app/models/dto"
	"github.com/yigit/workshophub/internal/app/repositories"
	"github.com/yigit/workshophub/internal/pkg/apperrors"
	"github.com/yigit/workshophub/internal/pkg/auth"
	"github.com/yigit/workshophub/internal/pkg/validation"
)

// AuthService defines the interface for authentication operations
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, userID int64) error
	GetCurrentUser(ctx context.Context, userID int64) (*models.User, error)
}

// authServiceImpl implements the AuthService interface
type authServiceImpl struct {
	userRepo   repositories.UserRepository
	tokenRepo  repositories.TokenRepository
	jwtService *auth.JWTService
	bcryptCost int
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repositories.UserRepository,
	tokenRepo repositories.TokenRepository,
	jwtService *auth.JWTService,
	bcryptCost int,
	logger zerolog.Logger,
) AuthService {
	if bcryptCost <= 0 {
		bcryptCost = auth.BcryptCost
	}
	return &authServiceImpl{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtService: jwtService,
		bcryptCost: bcryptCost,
		logger:     logger.With().Str("service", "auth").Logger(),
	}
}

// validateRegistration collects every field-level problem of a registration request
func validateRegistration(req *dto.RegisterRequest) error {
	fields := validation.Collect(validation.Username(req.Username))
	if msg := validation.PasswordStrength(req.Password); msg != "" {
		if fields == nil {
			fields = make(map[string]interface{})
		}
		fields["password"] = msg
	}
	if !req.Role.IsValid() {
		if fields == nil {
			fields = make(map[string]interface{})
		}
		fields["role"] = apperrors.ErrInvalidRole.Error()
	}
	if fields == nil {
		return nil
	}
	if _, bad := fields["username"]; bad {
		return apperrors.NewCustomError(apperrors.ErrInvalidUsername, "Validation failed").WithDetails(fields)
	}
	return apperrors.NewValidationError("Validation failed", fields)
}

// Register creates a user account and signs it in
func (s *authServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	hashedPassword, err := auth.HashPasswordWithCost(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, &models.User{
		Username: req.Username,
		Password: hashedPassword,
		Role:     req.Role,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrUsernameTaken) {
			return nil, apperrors.ErrUsernameTaken
		}
		return nil, fmt.Errorf("user creation error: %w", err)
	}

	s.logger.Info().Int64("userID", user.ID).Str("role", string(user.Role)).Msg("User registered")
	return s.authResponse(ctx, user)
}

// Login authenticates a user by username and password
func (s *authServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		s.logger.Debug().Str("username", req.Username).Msg("Password mismatch")
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.authResponse(ctx, user)
}

// RefreshToken rotates a refresh token: the old one is revoked and a new pair is issued
func (s *authServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if refreshToken == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	stored, err := s.tokenRepo.GetTokenByValue(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrTokenNotFound) {
			return nil, apperrors.ErrTokenNotFound
		}
		return nil, fmt.Errorf("token validation error: %w", err)
	}

	if stored.IsRevoked {
		return nil, apperrors.ErrTokenRevoked
	}
	if stored.ExpiryDate.Before(time.Now()) {
		_ = s.tokenRepo.RevokeToken(ctx, refreshToken)
		return nil, apperrors.ErrTokenExpired
	}

	user, err := s.userRepo.GetUserByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, fmt.Errorf("error loading token owner: %w", err)
	}

	// Revoke before issuing so a stolen token cannot be replayed
	if err := s.tokenRepo.RevokeToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke old token: %w", err)
	}

	return s.issueTokens(ctx, user)
}

// Logout revokes every refresh token of the user
func (s *authServiceImpl) Logout(ctx context.Context, userID int64) error {
	if err := s.tokenRepo.RevokeAllUserTokens(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	s.logger.Info().Int64("userID", userID).Msg("User logged out")
	return nil
}

// GetCurrentUser returns the authenticated user's record
func (s *authServiceImpl) GetCurrentUser(ctx context.Context, userID int64) (*models.User, error) {
	if userID <= 0 {
		return nil, apperrors.ErrUnauthenticated
	}
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user information: %w", err)
	}
	return user, nil
}

func (s *authServiceImpl) authResponse(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		Token: *tokens,
		User:  dto.NewUserResponse(user),
	}, nil
}

// issueTokens signs an access token and persists the matching refresh token
func (s *authServiceImpl) issueTokens(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}

	if err := s.tokenRepo.CreateToken(ctx, pair.RefreshToken, user.ID, pair.RefreshExpiresAt); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:           pair.AccessToken,
		TokenType:             "Bearer",
		ExpiresIn:             pair.ExpiresIn,
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresIn: pair.RefreshExpiresIn,
	}, nil
}
