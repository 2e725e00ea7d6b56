package auth

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nkiryanov/novalite/internal/apperrors"
	"github.com/nkiryanov/novalite/internal/models"
)

// Claims the API puts into access tokens
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID    SubjectID `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Role      string    `json:"role,omitempty"`
	TokenType string    `json:"token_type,omitempty"`
}

// SubjectID accepts both numeric and string user ids
type SubjectID string

func (id *SubjectID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = SubjectID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("user_id must be a string or a number: %w", err)
	}
	*id = SubjectID(n.String())
	return nil
}

var unverifiedParser = jwt.NewParser()

// DecodeIdentity reads identity from the access token payload
// Signature is not verified
func DecodeIdentity(access string) (models.Identity, error) {
	var claims AccessTokenClaims

	_, _, err := unverifiedParser.ParseUnverified(access, &claims)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", apperrors.ErrTokenMalformed, err)
	}

	if claims.ExpiresAt == nil {
		return models.Identity{}, fmt.Errorf("%w: exp claim is missing", apperrors.ErrTokenMalformed)
	}

	return models.Identity{
		UserID:    string(claims.UserID),
		Username:  claims.Username,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
