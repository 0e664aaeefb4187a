package model

import "time"

// AccessToken is the stored half of a bearer credential. Only the SHA-256
// digest of the issued string is kept.
type AccessToken struct {
	ID        string     `json:"id"`
	UserID    int64      `json:"user_id"`
	Name      string     `json:"name"`
	TokenHash string     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token has an expiry at or before now.
func (t AccessToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}
