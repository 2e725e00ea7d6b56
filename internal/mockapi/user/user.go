package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/novalite/internal/apperrors"
)

const DefaultRole = "user"

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Username       string
	Role           string
	HashedPassword string
}

// In memory user registry. Mock API keeps no state between runs
type Registry struct {
	hasher Hasher

	mu         sync.RWMutex
	byID       map[uuid.UUID]User
	byUsername map[string]uuid.UUID
}

func NewRegistry(hasher Hasher) *Registry {
	if hasher == nil {
		hasher = DefaultHasher
	}

	return &Registry{
		hasher:     hasher,
		byID:       make(map[uuid.UUID]User),
		byUsername: make(map[string]uuid.UUID),
	}
}

func (r *Registry) CreateUser(ctx context.Context, username string, password string, role string) (User, error) {
	if role == "" {
		role = DefaultRole
	}

	hash, err := r.hasher.Hash(password)
	if err != nil {
		return User{}, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[username]; ok {
		return User{}, apperrors.ErrUserAlreadyExists
	}

	u := User{
		ID:             uuid.New(),
		CreatedAt:      time.Now().UTC(),
		Username:       username,
		Role:           role,
		HashedPassword: hash,
	}
	r.byID[u.ID] = u
	r.byUsername[username] = u.ID

	return u, nil
}

func (r *Registry) GetUserByUsername(ctx context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return User{}, apperrors.ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *Registry) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return User{}, apperrors.ErrUserNotFound
	}
	return u, nil
}

// Check password of existing user
// Returns apperrors.ErrUserNotFound both for unknown user and wrong password
func (r *Registry) Authenticate(ctx context.Context, username string, password string) (User, error) {
	u, err := r.GetUserByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}

	if err := r.hasher.Compare(u.HashedPassword, password); err != nil {
		return User{}, apperrors.ErrUserNotFound
	}
	return u, nil
}

type Seed struct {
	Username string
	Password string
	Role     string
}

// ParseSeeds parses users in form "name:password:role,name2:password2"
// Role may be omitted
func ParseSeeds(s string) ([]Seed, error) {
	var seeds []Seed

	for item := range strings.SplitSeq(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		parts := strings.Split(item, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid user %q, expected name:password[:role]", item)
		}

		seed := Seed{Username: parts[0], Password: parts[1]}
		if len(parts) == 3 {
			seed.Role = parts[2]
		}
		seeds = append(seeds, seed)
	}

	return seeds, nil
}

// Seed creates every user. Already existing users are an error
func (r *Registry) Seed(ctx context.Context, seeds []Seed) error {
	var errs []error
	for _, s := range seeds {
		if _, err := r.CreateUser(ctx, s.Username, s.Password, s.Role); err != nil {
			errs = append(errs, fmt.Errorf("can't create user %q: %w", s.Username, err))
		}
	}
	return errors.Join(errs...)
}
