// Package authz decides per-ticket access for the current caller.
package authz

import (
	"github.com/google/uuid"

	"github.com/smartticket/ticket-api/internal/domain"
)

// Requirement names the kind of access a caller needs on a ticket.
type Requirement int

const (
	Read Requirement = iota + 1
	Write
	Assign
)

func (r Requirement) String() string {
	switch r {
	case Read:
		return "read"
	case Write:
		return "write"
	case Assign:
		return "assign"
	}
	return "unknown"
}

// Subject is the caller being authorized.
type Subject struct {
	UserID string
	Admin  bool
}

// Decision is the outcome of Authorize.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// Allowed reports whether d grants access.
func (d Decision) Allowed() bool { return d == Allow }

type rule struct {
	allowMissing bool
	owner        bool
	assignee     bool
}

// rules: admins always pass; a missing ticket is allowed where the
// handler is expected to answer 404 itself.
var rules = map[Requirement]rule{
	Read:   {allowMissing: true, owner: true, assignee: true},
	Write:  {allowMissing: true, owner: true},
	Assign: {},
}

// Authorize evaluates requirement for subject against ticket. ticket may
// be nil when it does not exist. Unknown requirements are denied.
func Authorize(subject Subject, requirement Requirement, ticket *domain.Ticket) Decision {
	r, ok := rules[requirement]
	if !ok {
		return Deny
	}
	if subject.Admin {
		return Allow
	}
	if ticket == nil {
		if r.allowMissing {
			return Allow
		}
		return Deny
	}
	if r.owner && isOwner(subject, ticket) {
		return Allow
	}
	if r.assignee && isAssignee(subject, ticket) {
		return Allow
	}
	return Deny
}

func isOwner(subject Subject, ticket *domain.Ticket) bool {
	return sameUser(subject.UserID, ticket.CreatedByUserID)
}

func isAssignee(subject Subject, ticket *domain.Ticket) bool {
	return ticket.AssignedToUserID != nil && sameUser(subject.UserID, *ticket.AssignedToUserID)
}

// sameUser compares two identifiers as UUIDs. Anything that does not
// parse never matches.
func sameUser(a, b string) bool {
	ua, err := uuid.Parse(a)
	if err != nil {
		return false
	}
	ub, err := uuid.Parse(b)
	if err != nil {
		return false
	}
	return ua == ub
}
