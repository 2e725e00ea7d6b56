package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/novalite/internal/credstore"
	"github.com/nkiryanov/novalite/internal/models"
)

// Signed with a key the client never sees: the client must not care
func makeAccess(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:    "7",
		Username:  "ana",
		Role:      "logistica",
		TokenType: "access",
	})
	s, err := token.SignedString([]byte("server-side-key"))
	require.NoError(t, err)
	return s
}

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// Protected API: accepts only tokens marked valid, answers 401 otherwise
type apiServer struct {
	*httptest.Server

	mu       sync.Mutex
	valid    map[string]bool
	requests []recordedRequest

	// Called after request is recorded, before response is written
	onRequest func(r recordedRequest)
}

func newAPIServer(t *testing.T, valid ...string) *apiServer {
	s := &apiServer{valid: make(map[string]bool)}
	for _, token := range valid {
		s.valid[token] = true
	}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: string(body)}

		s.mu.Lock()
		s.requests = append(s.requests, rec)
		ok := s.valid[bearer(r)]
		hook := s.onRequest
		s.mu.Unlock()

		if hook != nil {
			hook(rec)
		}

		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail": "Given token not valid for any token type"}`))
			return
		}
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	t.Cleanup(s.Close)

	return s
}

func (s *apiServer) allow(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid[token] = true
}

func (s *apiServer) recorded() []recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedRequest(nil), s.requests...)
}

func bearer(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) < len(prefix) || h[:len(prefix)] != prefix {
		return ""
	}
	return h[len(prefix):]
}

// TokenService double counting calls
type fakeTokens struct {
	mu           sync.Mutex
	refreshCalls int
	obtainCalls  int

	refreshFn func(ctx context.Context, refresh string) (models.TokenPair, error)
	obtainFn  func(ctx context.Context, username, password string) (models.TokenPair, error)
}

func (f *fakeTokens) Obtain(ctx context.Context, username string, password string) (models.TokenPair, error) {
	f.mu.Lock()
	f.obtainCalls++
	fn := f.obtainFn
	f.mu.Unlock()

	return fn(ctx, username, password)
}

func (f *fakeTokens) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	f.mu.Lock()
	f.refreshCalls++
	fn := f.refreshFn
	f.mu.Unlock()

	return fn(ctx, refresh)
}

func (f *fakeTokens) calls() (obtain int, refresh int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.obtainCalls, f.refreshCalls
}

type loginRequiredRecorder struct {
	mu      sync.Mutex
	reasons []error
}

func (r *loginRequiredRecorder) hook(_ context.Context, reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *loginRequiredRecorder) calls() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.reasons...)
}

func storeWith(t *testing.T, pair models.TokenPair) *credstore.Memory {
	s := credstore.NewMemory()
	require.NoError(t, s.Set(t.Context(), pair))
	return s
}

// Memory store whose first Get blocks until release is closed
type gatedStore struct {
	*credstore.Memory

	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore(t *testing.T, pair models.TokenPair) *gatedStore {
	return &gatedStore{
		Memory:  storeWith(t, pair),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *gatedStore) Get(ctx context.Context) (models.TokenPair, error) {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.Memory.Get(ctx)
}
