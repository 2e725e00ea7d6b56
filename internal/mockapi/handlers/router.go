package handlers

import (
	"context"
	"net/http"

	"github.com/nkiryanov/novalite/internal/logger"
	"github.com/nkiryanov/novalite/internal/mockapi/handlers/middleware"
	"github.com/nkiryanov/novalite/internal/mockapi/user"
	"github.com/nkiryanov/novalite/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(authService authService, logger logger.Logger) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authService)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	api := http.NewServeMux()

	api.Handle("POST /token/{$}", handleTokenObtain(authService, logger))
	api.Handle("POST /token/refresh/{$}", handleTokenRefresh(authService, logger))

	api.Handle("GET /me/{$}", withAuth(handleMe()))
	api.Handle("GET /items/{$}", withAuth(handleItems()))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Login user with username and password
	// Has to return apperrors.ErrUserNotFound if user not found or password is wrong
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Refresh tokens using refresh token
	// If token expired: has to return apperrors.ErrRefreshTokenExpired
	// If token not found: has to return apperrors.ErrRefreshTokenNotFound
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Get request and return user if it authenticated or error
	Auth(ctx context.Context, r *http.Request) (user.User, error)
}
