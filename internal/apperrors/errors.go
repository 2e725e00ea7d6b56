package apperrors

import (
	"errors"
)

var (
	// No credential pair stored. The caller must log in first
	ErrAuthRequired = errors.New("authentication required")

	// Refresh failed and the stored credentials were purged
	ErrSessionExpired = errors.New("session expired")

	// Network level failure (dns, connection, timeout)
	ErrRequestFailed = errors.New("request failed")

	// Token service refused to issue tokens
	ErrLoginRejected = errors.New("login rejected")

	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrTokenMalformed      = errors.New("token is malformed")
)

// Mock API
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
)
