package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/nkiryanov/novalite/internal/mockapi/auth"
	"github.com/nkiryanov/novalite/internal/mockapi/handlers/render"
	"github.com/nkiryanov/novalite/internal/mockapi/handlers/userctx"
	"github.com/nkiryanov/novalite/internal/mockapi/user"
)

type authService interface {
	Auth(ctx context.Context, r *http.Request) (user.User, error)
}

func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := as.Auth(r.Context(), r)
			switch {
			case errors.Is(err, auth.ErrNoCredentials):
				render.Detail(w, "Authentication credentials were not provided.", http.StatusUnauthorized)
				return
			case err != nil:
				render.TokenNotValid(w, "Given token not valid for any token type")
				return
			}

			ctx := userctx.New(r.Context(), u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
