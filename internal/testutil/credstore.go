package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/novalite/internal/apperrors"
	"github.com/nkiryanov/novalite/internal/credstore"
	"github.com/nkiryanov/novalite/internal/models"
)

// RunStoreContract checks behaviour every credstore.Store must have
// newStore has to return an empty store on every call
func RunStoreContract(t *testing.T, newStore func(t *testing.T) credstore.Store) {
	t.Helper()

	pair := models.TokenPair{Access: "access-1", Refresh: "refresh-1"}

	t.Run("get empty", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Get(t.Context())

		require.ErrorIs(t, err, apperrors.ErrCredentialsNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)

		err := s.Set(t.Context(), pair)
		require.NoError(t, err)

		got, err := s.Get(t.Context())
		require.NoError(t, err)
		require.Equal(t, pair, got)
	})

	t.Run("set overwrites whole pair", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(t.Context(), pair))

		second := models.TokenPair{Access: "access-2", Refresh: "refresh-2"}
		err := s.Set(t.Context(), second)
		require.NoError(t, err)

		got, err := s.Get(t.Context())
		require.NoError(t, err)
		require.Equal(t, second, got, "no trace of the first pair should remain")
	})

	t.Run("clear", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(t.Context(), pair))

		err := s.Clear(t.Context())
		require.NoError(t, err)

		_, err = s.Get(t.Context())
		require.ErrorIs(t, err, apperrors.ErrCredentialsNotFound)
	})

	t.Run("clear empty is ok", func(t *testing.T) {
		s := newStore(t)

		err := s.Clear(t.Context())

		require.NoError(t, err)
	})
}
