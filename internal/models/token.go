package models

import (
	"time"
)

// Credential pair as issued by the token service
// Persisted as one unit by credential stores
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (p TokenPair) IsZero() bool {
	return p.Access == "" && p.Refresh == ""
}

// Identity decoded from access token payload
// Always derived from the current token, never stored on its own
type Identity struct {
	UserID    string
	Username  string
	Role      string
	ExpiresAt time.Time
}

// Expired reports whether the token the identity was decoded from is past its expiry
func (i Identity) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
