package domain

import "time"

// TicketComment captures a message in a ticket thread.
type TicketComment struct {
	ID           string
	TicketID     string
	AuthorUserID string
	Text         string
	CreatedAt    time.Time
}

// TicketAttachment references a file uploaded alongside a ticket.
type TicketAttachment struct {
	ID          string
	TicketID    string
	URL         string
	FileName    string
	ContentType string
	CreatedAt   time.Time
}
