package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	// EventTicketMutated follows every successful ticket operation.
	EventTicketMutated EventType = "ticket_mutated"
	// EventTicketMutationRejected follows an operation that returned an error.
	EventTicketMutationRejected EventType = "ticket_mutation_rejected"
)

// AllTypes lists every type a relay should subscribe to.
var AllTypes = []EventType{EventTicketMutated, EventTicketMutationRejected}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string `json:"user_id"`
	Admin  bool   `json:"admin"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	TicketID      string      `json:"ticket_id,omitempty"`
	Actor         Actor       `json:"actor"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// MutationPayload describes one audited ticket operation.
type MutationPayload struct {
	Operation  string `json:"operation"`
	Outcome    string `json:"outcome"`
	ErrorCode  string `json:"error_code,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}
