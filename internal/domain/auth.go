package domain

import "time"

// AccessToken is a signed credential handed to a client after login.
type AccessToken struct {
	Token     string
	UserID    string
	Role      Role
	ExpiresAt time.Time
}
