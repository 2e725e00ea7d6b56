// Package credstore keeps the credential pair between runs.
package credstore

import (
	"context"

	"github.com/nkiryanov/novalite/internal/models"
)

// Key the pair is stored under when a store supports several entries
const DefaultKey = "authTokens"

// Store persists exactly one credential pair
type Store interface {
	// Return stored pair
	// If nothing stored must return apperrors.ErrCredentialsNotFound
	Get(ctx context.Context) (models.TokenPair, error)

	// Replace stored pair with the given one
	// Both tokens have to be written as a unit
	Set(ctx context.Context, pair models.TokenPair) error

	// Remove stored pair. Clearing an empty store is not an error
	Clear(ctx context.Context) error
}
