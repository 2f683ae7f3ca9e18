package model

import "time"

// Identity is an authenticated caller.
// It is established from a verified session and passed explicitly to
// every authorization decision.
type Identity struct {
	Username  string
	SessionID string
}

// Session is a server-side login session referenced by an access token.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true if the session has passed its expiry.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
