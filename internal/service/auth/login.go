package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nkiryanov/novalite/internal/apperrors"
	"github.com/nkiryanov/novalite/internal/models"
	"github.com/nkiryanov/novalite/internal/service/tokenservice"
)

const genericLoginFailure = "Login failed"

var validate = validator.New()

// LoginError carries message ready to be shown to the user
type LoginError struct {
	// HTTP status of the token service, 0 if request was not sent
	Status  int
	Message string
}

func (e *LoginError) Error() string {
	return e.Message
}

func (e *LoginError) Unwrap() error {
	return apperrors.ErrLoginRejected
}

type loginInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// Login obtains new token pair, stores it (replacing any previous one) and returns identity.
// Rejections are *LoginError; transport failures match apperrors.ErrRequestFailed
func (c *Client) Login(ctx context.Context, username string, password string) (models.Identity, error) {
	if err := validate.Struct(loginInput{Username: strings.TrimSpace(username), Password: password}); err != nil {
		return models.Identity{}, &LoginError{Message: inputMessage(err)}
	}

	pair, err := c.tokens.Obtain(ctx, username, password)

	var tsErr *tokenservice.Error
	switch {
	case err == nil:
	case errors.As(err, &tsErr):
		c.logger.Info("Login rejected", "username", username, "status", tsErr.Status)
		return models.Identity{}, &LoginError{Status: tsErr.Status, Message: tsErr.Message}
	case errors.Is(err, apperrors.ErrRequestFailed):
		return models.Identity{}, err
	default:
		c.logger.Warn("Login response unusable", "username", username, "error", err)
		return models.Identity{}, &LoginError{Message: genericLoginFailure}
	}

	identity, err := DecodeIdentity(pair.Access)
	if err != nil {
		c.logger.Warn("Issued access token can't be decoded", "username", username, "error", err)
		return models.Identity{}, &LoginError{Message: genericLoginFailure}
	}

	if err := c.store.Set(ctx, pair); err != nil {
		return models.Identity{}, fmt.Errorf("can't save credentials. Err: %w", err)
	}

	c.logger.Info("Logged in", "username", identity.Username, "role", identity.Role)
	return identity, nil
}

// Logout purges stored credentials and sends the user to login
func (c *Client) Logout(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("can't clear credentials. Err: %w", err)
	}

	c.logger.Info("Logged out")
	c.onLoginRequired(ctx, nil)
	return nil
}

// Identity decodes the currently stored access token. It is never cached.
// Credentials with undecodable token are purged
func (c *Client) Identity(ctx context.Context) (models.Identity, error) {
	pair, err := c.store.Get(ctx)
	switch {
	case errors.Is(err, apperrors.ErrCredentialsNotFound):
		return models.Identity{}, apperrors.ErrAuthRequired
	case err != nil:
		return models.Identity{}, fmt.Errorf("can't read credentials. Err: %w", err)
	}

	identity, err := DecodeIdentity(pair.Access)
	if err != nil {
		c.logger.Warn("Stored access token can't be decoded, purging credentials", "error", err)
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.logger.Error("Failed to purge credentials", "error", clearErr)
		}
		return models.Identity{}, fmt.Errorf("%w: %w", apperrors.ErrAuthRequired, err)
	}

	return identity, nil
}

func inputMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return genericLoginFailure
	}

	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, strings.ToLower(fe.Field())+" is required")
	}
	return strings.Join(msgs, ", ")
}
