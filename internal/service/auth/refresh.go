package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/nkiryanov/novalite/internal/apperrors"
	"github.com/nkiryanov/novalite/internal/logger"
	"github.com/nkiryanov/novalite/internal/models"
)

const refreshKey = "refresh"

// Refresh exchanges the stored refresh token for a new access token and stores it.
// On any failure the credentials are purged, OnLoginRequired is called and
// the returned error matches apperrors.ErrSessionExpired. Callers must not retry it
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return c.refresh(ctx, "")
}

// Outcome of one shared refresh flight
type refreshResult struct {
	access string

	// Token service was called. False when the stored token was reused
	refreshed bool
}

// serves reports whether a caller that saw stale may use the flight outcome.
// A flight is started by one caller for its own stale token, others only join it
func (r refreshResult) serves(stale string) bool {
	if stale == "" {
		return r.refreshed
	}
	return r.access != stale
}

// stale is the access token the caller saw rejected or expired; empty forces a refresh
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	for {
		// Shared refresh outlives the caller that started it. Token service applies its own timeout
		ch := c.refreshGroup.DoChan(refreshKey, func() (any, error) {
			return c.doRefresh(context.WithoutCancel(ctx), stale)
		})

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for token refresh: %w", ctx.Err())
		case res := <-ch:
			if res.Err != nil {
				return "", res.Err
			}
			result := res.Val.(refreshResult)
			if result.serves(stale) {
				return result.access, nil
			}
			c.logger.Debug("Joined refresh did not replace caller token, refreshing again")
		}
	}
}

func (c *Client) doRefresh(ctx context.Context, stale string) (refreshResult, error) {
	pair, err := c.store.Get(ctx)
	switch {
	case errors.Is(err, apperrors.ErrCredentialsNotFound):
		return refreshResult{}, c.endSession(ctx, err)
	case err != nil:
		return refreshResult{}, fmt.Errorf("can't read credentials. Err: %w", err)
	}

	// Someone refreshed after the caller read the store
	if stale != "" && pair.Access != "" && pair.Access != stale {
		c.logger.Debug("Access token already refreshed, reusing it")
		return refreshResult{access: pair.Access}, nil
	}

	if pair.Refresh == "" {
		return refreshResult{}, c.endSession(ctx, errors.New("no refresh token stored"))
	}

	issued, err := c.tokens.Refresh(ctx, pair.Refresh)
	if err != nil {
		return refreshResult{}, c.endSession(ctx, err)
	}

	next := models.TokenPair{Access: issued.Access, Refresh: pair.Refresh}
	if issued.Refresh != "" {
		next.Refresh = issued.Refresh
	}

	if err := c.store.Set(ctx, next); err != nil {
		return refreshResult{}, fmt.Errorf("can't save refreshed credentials. Err: %w", err)
	}

	c.logger.Info("Access token refreshed", "access", logger.Redact(next.Access), "rotated", issued.Refresh != "")
	return refreshResult{access: next.Access, refreshed: true}, nil
}

// Store is cleared before OnLoginRequired runs
func (c *Client) endSession(ctx context.Context, cause error) error {
	c.logger.Warn("Session expired, purging credentials", "error", cause)

	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error("Failed to purge credentials", "error", err)
	}
	c.onLoginRequired(ctx, apperrors.ErrSessionExpired)

	return fmt.Errorf("%w: %w", apperrors.ErrSessionExpired, cause)
}
