package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen TicketStatus = "Open"
	// TicketStatusInProgress is reserved; no transition sets it yet.
	TicketStatusInProgress TicketStatus = "InProgress"
	TicketStatusClosed     TicketStatus = "Closed"
)

// IsValid reports whether s is a known status.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	}
	return false
}

// ParseTicketStatus matches a status name case-insensitively.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	for _, s := range []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed} {
		if strings.EqualFold(string(s), strings.TrimSpace(raw)) {
			return s, true
		}
	}
	return "", false
}

// TicketPriority is a five level ordinal urgency.
type TicketPriority string

const (
	TicketPriorityVeryLow  TicketPriority = "VeryLow"
	TicketPriorityLow      TicketPriority = "Low"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityVeryHigh TicketPriority = "VeryHigh"
)

var priorityOrder = []TicketPriority{
	TicketPriorityVeryLow,
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityVeryHigh,
}

// Rank returns the ordinal of p, or -1 when p is not a defined level.
func (p TicketPriority) Rank() int {
	for i, candidate := range priorityOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// IsValid reports whether p is one of the five defined levels.
func (p TicketPriority) IsValid() bool {
	return p.Rank() >= 0
}

// Ticket is the mutable aggregate for support requests.
type Ticket struct {
	ID               string
	Title            string
	Description      string
	Status           TicketStatus
	Priority         TicketPriority
	CreatedByUserID  string
	AssignedToUserID *string
	CreatedAt        time.Time
	DueAt            *time.Time
	ClosedAt         *time.Time
	AssignedAt       *time.Time
	// Version is the storage row version. It is not part of the ETag.
	Version int64
}

// IsClosed reports whether the ticket reached its terminal state.
func (t *Ticket) IsClosed() bool {
	return t.Status == TicketStatusClosed
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.AssignedToUserID = cloneString(t.AssignedToUserID)
	c.DueAt = cloneTime(t.DueAt)
	c.ClosedAt = cloneTime(t.ClosedAt)
	c.AssignedAt = cloneTime(t.AssignedAt)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
