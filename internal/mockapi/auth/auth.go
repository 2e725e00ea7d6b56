package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/novalite/internal/apperrors"
	"github.com/nkiryanov/novalite/internal/mockapi/tokenmanager"
	"github.com/nkiryanov/novalite/internal/mockapi/user"
	"github.com/nkiryanov/novalite/internal/models"
)

var ErrNoCredentials = errors.New("authorization header is missing")

type userRepo interface {
	Authenticate(ctx context.Context, username string, password string) (user.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error)
}

type Config struct {
	// Issue new refresh token on every refresh and revoke the presented one
	RotateRefresh bool
}

// Issues token pairs to users of the mock API and authenticates its requests
type AuthService struct {
	tokens *tokenmanager.TokenManager
	users  userRepo
	rotate bool
}

func NewService(cfg Config, tokens *tokenmanager.TokenManager, users userRepo) (*AuthService, error) {
	if tokens == nil || users == nil {
		return nil, errors.New("token manager and users must not be nil")
	}

	return &AuthService{
		tokens: tokens,
		users:  users,
		rotate: cfg.RotateRefresh,
	}, nil
}

// Login user with username and password
// Returns apperrors.ErrUserNotFound if user not found or password does not match
func (s *AuthService) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	u, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.tokens.GeneratePair(ctx, u)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return pair, nil
}

// Refresh returns new access token. Refresh is set only when rotation is on
// Returns apperrors.ErrRefreshTokenNotFound or apperrors.ErrRefreshTokenExpired for unusable tokens
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	token, err := s.tokens.UseRefresh(ctx, refresh, s.rotate)
	if err != nil {
		return models.TokenPair{}, err
	}

	u, err := s.users.GetUserByID(ctx, token.UserID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: owner is gone: %w", apperrors.ErrRefreshTokenNotFound, err)
	}

	if s.rotate {
		return s.tokens.GeneratePair(ctx, u)
	}

	access, err := s.tokens.GenerateAccess(u)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{Access: access}, nil
}

// Auth returns user whose access token is in Authorization header
// Returns ErrNoCredentials if there is no bearer token at all
func (s *AuthService) Auth(ctx context.Context, r *http.Request) (user.User, error) {
	header := r.Header.Get("Authorization")
	scheme, access, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || access == "" {
		return user.User{}, ErrNoCredentials
	}

	claims, err := s.tokens.ParseAccess(ctx, access)
	if err != nil {
		return user.User{}, err
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return user.User{}, fmt.Errorf("invalid user_id claim: %w", err)
	}

	return s.users.GetUserByID(ctx, id)
}
