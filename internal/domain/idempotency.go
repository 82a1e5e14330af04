package domain

import "time"

// IdempotencyRecord stores the outcome of a previously completed POST.
type IdempotencyRecord struct {
	ID           string
	UserID       string
	Key          string
	Path         string
	Method       string
	StatusCode   int
	ResponseBody []byte
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Expired reports whether the record is no longer replayable at now.
func (r *IdempotencyRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
