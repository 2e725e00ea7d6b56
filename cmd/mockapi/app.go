package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nkiryanov/novalite/internal/logger"
	"github.com/nkiryanov/novalite/internal/mockapi/auth"
	"github.com/nkiryanov/novalite/internal/mockapi/handlers"
	"github.com/nkiryanov/novalite/internal/mockapi/tokenmanager"
	"github.com/nkiryanov/novalite/internal/mockapi/user"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Logger     logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	generated, err := c.EnsureSecretKey()
	if err != nil {
		return nil, err
	}
	if generated {
		logger.Warn("SECRET_KEY is not set, random one is used. Issued tokens will not survive restart")
	}

	seeds, err := user.ParseSeeds(c.Users)
	if err != nil {
		return nil, fmt.Errorf("error while parsing users. Err: %w", err)
	}
	users := user.NewRegistry(user.DefaultHasher)
	if err := users.Seed(ctx, seeds); err != nil {
		return nil, fmt.Errorf("error while creating users. Err: %w", err)
	}
	if len(seeds) == 0 {
		logger.Warn("No users configured, nobody can log in")
	}

	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		SecretKey:  c.SecretKey,
		AccessTTL:  c.AccessTTL,
		RefreshTTL: c.RefreshTTL,
	}, tokenmanager.NewMemoryRegistry())
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{RotateRefresh: c.RotateRefresh}, tokenManager, users)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    handlers.NewRouter(authService, logger),
		Logger:     logger,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.Logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.Logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.Logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
