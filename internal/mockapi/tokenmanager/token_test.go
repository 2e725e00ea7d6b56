package tokenmanager

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/novalite/internal/apperrors"
	"github.com/nkiryanov/novalite/internal/mockapi/user"
)

func Test_TokenManager(t *testing.T) {
	t.Parallel()

	testUser := user.User{
		ID:       uuid.New(),
		Username: "testuser",
		Role:     "logistica",
	}

	newManager := func(t *testing.T, accessTTL time.Duration, refreshTTL time.Duration) (*TokenManager, *MemoryRegistry) {
		registry := NewMemoryRegistry()
		m, err := New(Config{SecretKey: "test-secret-key", AccessTTL: accessTTL, RefreshTTL: refreshTTL}, registry)
		require.NoError(t, err, "token manager should be created without errors")
		return m, registry
	}

	t.Run("new defaults", func(t *testing.T) {
		m, err := New(Config{SecretKey: "secret"}, nil)
		require.NoError(t, err, "token manager should be created without errors")

		require.Equal(t, "secret", m.key, "secret key should be set")
		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultRefreshTokenTTL, m.refreshTTL, "default refresh token TTL")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
		require.NotNil(t, m.refreshRegistry, "memory registry is default")
	})

	t.Run("new invalid", func(t *testing.T) {
		_, err := New(Config{}, nil)
		require.Error(t, err, "secret key is required")

		_, err = New(Config{SecretKey: "secret", Alg: "nope"}, nil)
		require.Error(t, err, "unknown alg must fail")
	})

	t.Run("GeneratePair", func(t *testing.T) {
		t.Run("access claims", func(t *testing.T) {
			m, _ := newManager(t, 15*time.Minute, 24*time.Hour)

			pair, err := m.GeneratePair(t.Context(), testUser)
			require.NoError(t, err)

			token, err := jwt.ParseWithClaims(pair.Access, &AccessTokenClaims{}, func(token *jwt.Token) (any, error) {
				return []byte("test-secret-key"), nil
			})
			require.NoError(t, err)
			require.True(t, token.Valid, "access token should be valid")

			claims, ok := token.Claims.(*AccessTokenClaims)
			require.True(t, ok, "claims should be of type AccessTokenClaims")
			assert.Equal(t, testUser.ID.String(), claims.UserID, "user ID in token should match")
			assert.Equal(t, "testuser", claims.Username)
			assert.Equal(t, "logistica", claims.Role)
			assert.Equal(t, "access", claims.TokenType)
			assert.NotEmpty(t, claims.ID, "token has to has jti")
			assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second, "issued at should be close to now")
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, time.Second, "expires at should be 15 minutes from now")
		})

		t.Run("refresh saved", func(t *testing.T) {
			m, registry := newManager(t, 15*time.Minute, 24*time.Hour)

			pair, err := m.GeneratePair(t.Context(), testUser)
			require.NoError(t, err)

			saved, err := registry.Get(t.Context(), pair.Refresh)
			require.NoError(t, err)
			assert.Equal(t, testUser.ID, saved.UserID)
			assert.WithinDuration(t, time.Now().Add(24*time.Hour), saved.ExpiresAt, time.Second)
		})

		t.Run("generate different tokens", func(t *testing.T) {
			m, _ := newManager(t, 15*time.Minute, 24*time.Hour)

			pair1, err := m.GeneratePair(t.Context(), testUser)
			require.NoError(t, err)

			pair2, err := m.GeneratePair(t.Context(), testUser)
			require.NoError(t, err)

			assert.NotEqual(t, pair1.Refresh, pair2.Refresh, "refresh tokens should be different")
			assert.NotEqual(t, pair1.Access, pair2.Access, "access tokens should be different")
		})
	})

	t.Run("UseRefresh", func(t *testing.T) {
		t.Run("consume once", func(t *testing.T) {
			m, _ := newManager(t, 15*time.Minute, 24*time.Hour)
			pair, err := m.GeneratePair(t.Context(), testUser)
			require.NoError(t, err)

			token, err := m.UseRefresh(t.Context(), pair.Refresh, true)
			require.NoError(t, err, "using refresh token should not return an error")
			require.Equal(t, testUser.ID, token.UserID)

			_, err = m.UseRefresh(t.Context(), pair.Refresh, true)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound, "consumed token can't be used again")
		})

		t.Run("reuse without consuming", func(t *testing.T) {
			m, _ := newManager(t, 15*time.Minute, 24*time.Hour)
			pair, err := m.GeneratePair(t.Context(), testUser)
			require.NoError(t, err)

			for range 3 {
				_, err = m.UseRefresh(t.Context(), pair.Refresh, false)
				require.NoError(t, err)
			}
		})

		t.Run("unknown", func(t *testing.T) {
			m, _ := newManager(t, 15*time.Minute, 24*time.Hour)

			_, err := m.UseRefresh(t.Context(), "unknown", false)

			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})

		t.Run("expired", func(t *testing.T) {
			m, registry := newManager(t, 15*time.Minute, 24*time.Hour)
			require.NoError(t, registry.Save(t.Context(), RefreshToken{
				ID:        uuid.New(),
				UserID:    testUser.ID,
				Token:     "old",
				CreatedAt: time.Now().Add(-2 * time.Hour),
				ExpiresAt: time.Now().Add(-time.Hour),
			}))

			_, err := m.UseRefresh(t.Context(), "old", false)

			require.ErrorIs(t, err, apperrors.ErrRefreshTokenExpired)
		})
	})

	t.Run("ParseAccess", func(t *testing.T) {
		t.Run("valid token", func(t *testing.T) {
			m, _ := newManager(t, 15*time.Minute, 24*time.Hour)
			access, err := m.GenerateAccess(testUser)
			require.NoError(t, err)

			claims, err := m.ParseAccess(t.Context(), access)
			require.NoError(t, err, "valid token should be parsed without errors")
			require.Equal(t, testUser.ID.String(), claims.UserID)
		})

		t.Run("not a token", func(t *testing.T) {
			m, _ := newManager(t, 15*time.Minute, 24*time.Hour)

			_, err := m.ParseAccess(t.Context(), "invalid token")

			require.Error(t, err, "parsing even not a token should return an error")
		})

		t.Run("expired token", func(t *testing.T) {
			m, _ := newManager(t, -time.Minute, 24*time.Hour)
			access, err := m.GenerateAccess(testUser)
			require.NoError(t, err)

			_, err = m.ParseAccess(t.Context(), access)

			require.ErrorIs(t, err, jwt.ErrTokenExpired, "token has to be expired")
		})

		t.Run("signed with other key", func(t *testing.T) {
			m, _ := newManager(t, 15*time.Minute, 24*time.Hour)
			other, err := New(Config{SecretKey: "other-key"}, nil)
			require.NoError(t, err)
			access, err := other.GenerateAccess(testUser)
			require.NoError(t, err)

			_, err = m.ParseAccess(t.Context(), access)

			require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
		})

		t.Run("not signed token", func(t *testing.T) {
			m, _ := newManager(t, 15*time.Minute, 24*time.Hour)
			token := jwt.NewWithClaims(
				jwt.SigningMethodNone,
				AccessTokenClaims{
					RegisteredClaims: jwt.RegisteredClaims{
						ID:        uuid.NewString(),
						IssuedAt:  jwt.NewNumericDate(time.Now()),
						ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
					},
					UserID:    testUser.ID.String(),
					TokenType: "access",
				},
			)
			access, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)

			_, err = m.ParseAccess(t.Context(), access)
			require.Error(t, err, "Valid token with empty alg must fail")
		})

		t.Run("refresh type rejected", func(t *testing.T) {
			m, _ := newManager(t, 15*time.Minute, 24*time.Hour)
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
				UserID:           testUser.ID.String(),
				TokenType:        "refresh",
			})
			access, err := token.SignedString([]byte("test-secret-key"))
			require.NoError(t, err)

			_, err = m.ParseAccess(t.Context(), access)
			require.Error(t, err)
		})
	})
}
