package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/novalite/internal/apperrors"
	"github.com/nkiryanov/novalite/internal/logger"
	"github.com/nkiryanov/novalite/internal/mockapi/handlers/render"
)

func handleTokenObtain(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required,max=150"`
		Password string `json:"password" validate:"required"`
	}
	type response struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			l.Debug("Invalid token request", "error", err)
			return
		}

		pair, err := authService.Login(r.Context(), data.Username, data.Password)
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.Detail(w, "No active account found with the given credentials", http.StatusUnauthorized)
			return
		case err != nil:
			l.Error("Failed to issue tokens", "username", data.Username, "error", err)
			render.Detail(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Access: pair.Access, Refresh: pair.Refresh})
	})
}

func handleTokenRefresh(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Refresh string `json:"refresh" validate:"required"`
	}
	type response struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Refresh(r.Context(), data.Refresh)
		switch {
		case errors.Is(err, apperrors.ErrRefreshTokenNotFound), errors.Is(err, apperrors.ErrRefreshTokenExpired):
			l.Debug("Refresh rejected", "refresh", logger.Redact(data.Refresh), "error", err)
			render.TokenNotValid(w, "Token is invalid or expired")
			return
		case err != nil:
			l.Error("Failed to refresh tokens", "error", err)
			render.Detail(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Access: pair.Access, Refresh: pair.Refresh})
	})
}
