package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/novalite/internal/apperrors"
	"github.com/nkiryanov/novalite/internal/credstore"
	"github.com/nkiryanov/novalite/internal/models"
)

// Both *pgxpool.Pool and pgx.Tx satisfy it
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store keeps credential pair as a row in 'credentials' table
// Several clients may share a database if they use different keys
type Store struct {
	db  DBTX
	key string
}

var _ credstore.Store = (*Store)(nil)

func New(db DBTX, key string) *Store {
	if key == "" {
		key = credstore.DefaultKey
	}
	return &Store{db: db, key: key}
}

const getPair = `-- name: GetPair
SELECT access, refresh
FROM credentials
WHERE key = $1
`

func (s *Store) Get(ctx context.Context) (models.TokenPair, error) {
	rows, _ := s.db.Query(ctx, getPair, s.key)
	pair, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.TokenPair, error) {
		var p models.TokenPair
		err := row.Scan(&p.Access, &p.Refresh)
		return p, err
	})

	switch {
	case err == nil:
		return pair, nil
	case errors.Is(err, pgx.ErrNoRows):
		return pair, fmt.Errorf("store error: %w", apperrors.ErrCredentialsNotFound)
	default:
		return pair, fmt.Errorf("db error: %w", err)
	}
}

const setPair = `-- name: SetPair (single statement, so both tokens change together)
INSERT INTO credentials (key, access, refresh, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (key) DO UPDATE
SET access = EXCLUDED.access,
    refresh = EXCLUDED.refresh,
    updated_at = EXCLUDED.updated_at
`

func (s *Store) Set(ctx context.Context, pair models.TokenPair) error {
	_, err := s.db.Exec(ctx, setPair, s.key, pair.Access, pair.Refresh)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const clearPair = `-- name: ClearPair
DELETE FROM credentials
WHERE key = $1
`

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.Exec(ctx, clearPair, s.key)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
