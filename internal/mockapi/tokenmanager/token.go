package tokenmanager

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/novalite/internal/apperrors"
	"github.com/nkiryanov/novalite/internal/mockapi/user"
	"github.com/nkiryanov/novalite/internal/models"
)

const (
	defaultAccessTokenTTL  = 5 * time.Minute
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 24 * time.Hour

	tokenTypeAccess = "access"
)

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
}

// Token manager with sensible default
type Config struct {
	// Secret key to sign access token
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type TokenManager struct {
	// Secret key to sign access token
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	// Access and refresh token lifetimes
	accessTTL  time.Duration
	refreshTTL time.Duration

	refreshRegistry RefreshRegistry
}

func New(cfg Config, refreshRegistry RefreshRegistry) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if alg == nil {
		return nil, fmt.Errorf("unknown signing method %q", cfg.Alg)
	}

	if refreshRegistry == nil {
		refreshRegistry = NewMemoryRegistry()
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		key:             cfg.SecretKey,
		alg:             alg,
		accessTTL:       cfg.AccessTTL,
		refreshTTL:      cfg.RefreshTTL,
		refreshRegistry: refreshRegistry,
	}, nil
}

func (m *TokenManager) GeneratePair(ctx context.Context, u user.User) (models.TokenPair, error) {
	now := time.Now().Truncate(time.Second)

	access, err := m.GenerateAccess(u)
	if err != nil {
		return models.TokenPair{}, err
	}

	// Generate random refresh token 16 bytes length
	b := make([]byte, 16)
	_, err = rand.Read(b)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("error while generate refresh token. Err: %w", err)
	}
	refresh := hex.EncodeToString(b)

	err = m.refreshRegistry.Save(ctx, RefreshToken{
		ID:        uuid.New(),
		UserID:    u.ID,
		Token:     refresh,
		CreatedAt: now,
		ExpiresAt: now.Add(m.refreshTTL),
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

// Signed JWT access token
func (m *TokenManager) GenerateAccess(u user.User) (string, error) {
	now := time.Now().Truncate(time.Second)

	accessToken := jwt.NewWithClaims(
		m.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			},
			UserID:    u.ID.String(),
			Username:  u.Username,
			Role:      u.Role,
			TokenType: tokenTypeAccess,
		},
	)

	access, err := accessToken.SignedString([]byte(m.key))
	if err != nil {
		return "", fmt.Errorf("error while signing access token. Err: %w", err)
	}
	return access, nil
}

// Check refresh token is known and not expired
// If consume is true token is marked used and can't be presented again
func (m *TokenManager) UseRefresh(ctx context.Context, refresh string, consume bool) (RefreshToken, error) {
	var token RefreshToken
	var err error

	if consume {
		token, err = m.refreshRegistry.GetAndMarkUsed(ctx, refresh)
	} else {
		token, err = m.refreshRegistry.Get(ctx, refresh)
	}
	if err != nil {
		return token, fmt.Errorf("error while reading refresh token. Err: %w", err)
	}

	if token.ExpiresAt.Before(time.Now()) {
		return token, fmt.Errorf("error while reading refresh token. Err: %w", apperrors.ErrRefreshTokenExpired)
	}

	return token, nil
}

// Parse and validate access token
func (m *TokenManager) ParseAccess(ctx context.Context, access string) (AccessTokenClaims, error) {
	claims := AccessTokenClaims{}

	_, err := jwt.ParseWithClaims(
		access,
		&claims,
		func(t *jwt.Token) (any, error) {
			return []byte(m.key), nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return AccessTokenClaims{}, fmt.Errorf("error while parsing or validating token. Err: %w", err)
	}

	if claims.TokenType != tokenTypeAccess {
		return AccessTokenClaims{}, fmt.Errorf("unexpected token type %q", claims.TokenType)
	}

	return claims, nil
}
