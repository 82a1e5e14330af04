package domain

import "time"

// Role is the coarse permission level of a user.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// User is the domain model for people who file and triage tickets.
type User struct {
	ID               string
	Email            string
	PasswordHash     string
	Role             Role
	FailedLoginCount int
	LockoutUntil     *time.Time
	CreatedAt        time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsLocked reports whether login is currently blocked.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockoutUntil != nil && u.LockoutUntil.After(now)
}
