package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nkiryanov/novalite/internal/apperrors"
	"github.com/nkiryanov/novalite/internal/credstore"
	"github.com/nkiryanov/novalite/internal/credstore/postgres"
	"github.com/nkiryanov/novalite/internal/db"
	"github.com/nkiryanov/novalite/internal/logger"
	"github.com/nkiryanov/novalite/internal/service/auth"
	"github.com/nkiryanov/novalite/internal/service/tokenservice"
)

type App struct {
	Client *auth.Client
	Logger logger.Logger

	// Release store resources
	Close func()
}

func NewApp(ctx context.Context, c *Config) (*App, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	store, closeStore, err := newStore(ctx, c)
	if err != nil {
		return nil, err
	}

	strategy, err := auth.ParseStrategy(c.Strategy)
	if err != nil {
		closeStore()
		return nil, err
	}

	tokens, err := tokenservice.NewClient(tokenservice.Config{BaseURL: c.APIURL, Logger: logger})
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("error while creating token service client. Err: %w", err)
	}

	client, err := auth.NewClient(auth.Config{
		BaseURL:  c.APIURL,
		Strategy: strategy,
		Logger:   logger,
		OnLoginRequired: func(ctx context.Context, reason error) {
			switch {
			case errors.Is(reason, apperrors.ErrSessionExpired):
				logger.Warn("Session expired, run 'novalite login' again")
			case reason != nil:
				logger.Warn("Not logged in, run 'novalite login' first")
			}
		},
	}, store, tokens)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("error while creating client. Err: %w", err)
	}

	return &App{Client: client, Logger: logger, Close: closeStore}, nil
}

func newStore(ctx context.Context, c *Config) (credstore.Store, func(), error) {
	switch c.Store {
	case storePostgres:
		pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("error while connecting to db. Err: %w", err)
		}
		return postgres.New(pool, credstore.DefaultKey), pool.Close, nil
	default:
		path := c.CredentialsPath
		if path == "" {
			var err error
			path, err = credstore.DefaultFilePath()
			if err != nil {
				return nil, nil, fmt.Errorf("can't locate credentials file, set --credentials. Err: %w", err)
			}
		}
		return credstore.NewFile(path), func() {}, nil
	}
}
