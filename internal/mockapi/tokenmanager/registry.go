package tokenmanager

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/novalite/internal/apperrors"
)

type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// Where issued refresh tokens are kept
type RefreshRegistry interface {
	Save(ctx context.Context, token RefreshToken) error

	// Has to return apperrors.ErrRefreshTokenNotFound for unknown or used token
	Get(ctx context.Context, token string) (RefreshToken, error)

	// Return token and mark it used, so it can't be used again
	// Has to return apperrors.ErrRefreshTokenNotFound for unknown or used token
	GetAndMarkUsed(ctx context.Context, token string) (RefreshToken, error)
}

type MemoryRegistry struct {
	mu     sync.Mutex
	tokens map[string]RefreshToken
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{tokens: make(map[string]RefreshToken)}
}

func (r *MemoryRegistry) Save(ctx context.Context, token RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token.Token] = token
	return nil
}

func (r *MemoryRegistry) Get(ctx context.Context, token string) (RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok || t.UsedAt != nil {
		return RefreshToken{}, apperrors.ErrRefreshTokenNotFound
	}
	return t, nil
}

func (r *MemoryRegistry) GetAndMarkUsed(ctx context.Context, token string) (RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok || t.UsedAt != nil {
		return RefreshToken{}, apperrors.ErrRefreshTokenNotFound
	}

	now := time.Now()
	t.UsedAt = &now
	r.tokens[token] = t

	return t, nil
}
