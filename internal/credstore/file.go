package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/nkiryanov/novalite/internal/apperrors"
	"github.com/nkiryanov/novalite/internal/models"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// File keeps the pair as JSON document on disk
// Writes go to a temp file in the same directory and are renamed over the target,
// so readers never observe half written pair
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

// DefaultFilePath is <user config dir>/novalite/credentials.json
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("can't locate user config dir. Err: %w", err)
	}
	return filepath.Join(dir, "novalite", "credentials.json"), nil
}

func (f *File) Get(_ context.Context) (models.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var pair models.TokenPair

	b, err := os.ReadFile(f.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return pair, apperrors.ErrCredentialsNotFound
	case err != nil:
		return pair, fmt.Errorf("error while reading credentials. Err: %w", err)
	}

	if err := json.Unmarshal(b, &pair); err != nil {
		return pair, fmt.Errorf("credentials file is corrupted. Err: %w", err)
	}
	if pair.IsZero() {
		return pair, apperrors.ErrCredentialsNotFound
	}

	return pair, nil
}

func (f *File) Set(_ context.Context, pair models.TokenPair) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("error while encoding credentials. Err: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("error while creating credentials dir. Err: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("error while creating temp file. Err: %w", err)
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("error while writing credentials. Err: %w", err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("error while setting credentials mode. Err: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("error while flushing credentials. Err: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error while closing credentials. Err: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("error while replacing credentials. Err: %w", err)
	}

	return nil
}

func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error while removing credentials. Err: %w", err)
	}
	return nil
}
