package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smartticket/ticket-api/internal/domain"
)

// newTicketEvent builds an audit trail entry. data is marshalled to JSON
// when non-nil.
func newTicketEvent(ticketID string, eventType domain.TicketEventType, actorUserID string, at time.Time, data any) (*domain.TicketEvent, error) {
	event := &domain.TicketEvent{
		ID:        uuid.NewString(),
		TicketID:  ticketID,
		Type:      eventType,
		CreatedAt: at,
	}
	if actorUserID != "" {
		actor := actorUserID
		event.ActorUserID = &actor
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s event data: %w", eventType, err)
		}
		event.Data = raw
	}
	return event, nil
}

type createdData struct {
	Title       string                `json:"title"`
	Priority    domain.TicketPriority `json:"priority"`
	Attachments int                   `json:"attachments,omitempty"`
}

type textFields struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updatedData struct {
	Old textFields `json:"old"`
	New textFields `json:"new"`
}

type assignedData struct {
	OldAssigneeUserID *string `json:"oldAssigneeUserId"`
	NewAssigneeUserID string  `json:"newAssigneeUserId"`
}

type priorityData struct {
	OldPriority domain.TicketPriority `json:"oldPriority"`
	NewPriority domain.TicketPriority `json:"newPriority"`
}

type dueChangedData struct {
	OldDueAt *time.Time `json:"oldDueAt"`
	NewDueAt time.Time  `json:"newDueAt"`
}

type dueClearedData struct {
	OldDueAt *time.Time `json:"oldDueAt"`
}

type commentAddedData struct {
	CommentID string `json:"commentId"`
}
