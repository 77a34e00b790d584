package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fieldserve/ticket-tracker/internal/auth"
	"github.com/fieldserve/ticket-tracker/internal/config"
	"github.com/fieldserve/ticket-tracker/internal/domain"
	"github.com/fieldserve/ticket-tracker/internal/repository"
	apperrors "github.com/fieldserve/ticket-tracker/pkg/util"
)

// LoginResult carries the token pair issued on successful login.
type LoginResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AuthService coordinates account and token flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes, cfg.RefreshTokenTTLHours),
		bcryptCost: cfg.BcryptCost,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Login authenticates a username/password pair and issues an access and a
// refresh token. The refresh token is persisted on the account.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	access, expiresAt, err := s.tokenMgr.GenerateAccessToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	refresh, _, err := s.tokenMgr.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.users.SaveRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, apperrors.MapError(err)
	}

	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}

// Refresh issues a new access token when the presented refresh token
// matches the one stored on the account.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	claims, err := s.tokenMgr.ParseToken(refreshToken)
	if err != nil {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid refresh token")
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid refresh token")
	}
	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid refresh token")
	}

	access, expiresAt, err := s.tokenMgr.GenerateAccessToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		return "", time.Time{}, apperrors.MapError(err)
	}
	return access, expiresAt, nil
}

// Register creates a new account.
func (s *AuthService) Register(ctx context.Context, username, password string, isAdmin bool) (*domain.User, error) {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("username already taken", nil)
	} else if err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// ListTechnicians returns assignable technician usernames.
func (s *AuthService) ListTechnicians(ctx context.Context) ([]string, error) {
	names, err := s.users.ListTechnicians(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return names, nil
}
