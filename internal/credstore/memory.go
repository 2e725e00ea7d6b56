package credstore

import (
	"context"
	"sync"

	"github.com/nkiryanov/novalite/internal/apperrors"
	"github.com/nkiryanov/novalite/internal/models"
)

// Memory keeps the pair in process memory only
type Memory struct {
	mu   sync.RWMutex
	pair *models.TokenPair
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(_ context.Context) (models.TokenPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.pair == nil {
		return models.TokenPair{}, apperrors.ErrCredentialsNotFound
	}
	return *m.pair, nil
}

func (m *Memory) Set(_ context.Context, pair models.TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pair = &pair
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pair = nil
	return nil
}
