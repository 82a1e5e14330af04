package domain

import (
	"encoding/json"
	"time"
)

// TicketEventType tags an audit trail entry.
type TicketEventType string

const (
	EventTicketCreated         TicketEventType = "ticket_created"
	EventTicketUpdated         TicketEventType = "ticket_updated"
	EventTicketAssigned        TicketEventType = "ticket_assigned"
	EventTicketClosed          TicketEventType = "ticket_closed"
	EventTicketPriorityChanged TicketEventType = "ticket_priority_changed"
	EventTicketDueChanged      TicketEventType = "ticket_due_changed"
	EventTicketDueCleared      TicketEventType = "ticket_due_cleared"
	EventTicketCommentAdded    TicketEventType = "ticket_comment_added"
)

// TicketEvent is an immutable audit trail entry.
type TicketEvent struct {
	ID          string
	TicketID    string
	Type        TicketEventType
	ActorUserID *string
	CreatedAt   time.Time
	Data        json.RawMessage
}
