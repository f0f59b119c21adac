package model

import "time"

// Session is the server-side record of a login.
// Its ID is carried as the jti claim of the session token.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true once the session lifetime has passed.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Caller is the identity resolved from a valid session.
type Caller struct {
	UserID    string
	SessionID string
}
