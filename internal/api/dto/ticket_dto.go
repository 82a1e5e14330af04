package dto

import (
	"encoding/json"
	"time"

	"github.com/smartticket/ticket-api/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Priority       domain.TicketPriority `json:"priority"`
	DueAt          *time.Time            `json:"due_at"`
	AttachmentURLs []string              `json:"attachment_urls"`
}

// UpdateTicketRequest payload.
type UpdateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssigneeUserID string `json:"assignee_user_id"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// UpdateDueDateRequest payload.
type UpdateDueDateRequest struct {
	DueAt *time.Time `json:"due_at"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Text string `json:"text"`
}

// CreatedResponse is returned by ticket creation.
type CreatedResponse struct {
	ID string `json:"id"`
}

// TicketResponse is the full representation of a ticket.
type TicketResponse struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	CreatedByUserID  string                `json:"created_by_user_id"`
	AssignedToUserID *string               `json:"assigned_to_user_id"`
	CreatedAt        time.Time             `json:"created_at"`
	DueAt            *time.Time            `json:"due_at"`
	ClosedAt         *time.Time            `json:"closed_at"`
	AssignedAt       *time.Time            `json:"assigned_at"`
	AttachmentURLs   []string              `json:"attachment_urls,omitempty"`
}

// TicketSummary is one row of a listing.
type TicketSummary struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	CreatedByUserID  string                `json:"created_by_user_id"`
	AssignedToUserID *string               `json:"assigned_to_user_id"`
	CreatedAt        time.Time             `json:"created_at"`
	DueAt            *time.Time            `json:"due_at"`
}

// CommentResponse represents a thread comment.
type CommentResponse struct {
	ID           string    `json:"id"`
	TicketID     string    `json:"ticket_id"`
	AuthorUserID string    `json:"author_user_id"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
}

// EventResponse represents one history entry.
type EventResponse struct {
	ID          string                 `json:"id"`
	Type        domain.TicketEventType `json:"type"`
	ActorUserID *string                `json:"actor_user_id"`
	CreatedAt   time.Time              `json:"created_at"`
	Data        json.RawMessage        `json:"data,omitempty"`
}

// PageMeta describes a paged listing.
type PageMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// PagedResponse wraps one page of items.
type PagedResponse[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}
