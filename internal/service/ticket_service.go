package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartticket/ticket-api/internal/authz"
	"github.com/smartticket/ticket-api/internal/domain"
	"github.com/smartticket/ticket-api/internal/etag"
	"github.com/smartticket/ticket-api/internal/repository"
	apperrors "github.com/smartticket/ticket-api/pkg/util/errorutil"
)

// TicketOperations is the mutating surface shared by TicketService and
// AuditedTicketService.
type TicketOperations interface {
	Create(ctx context.Context, subject authz.Subject, input CreateTicketInput) (*TicketDetails, error)
	Update(ctx context.Context, subject authz.Subject, ticketID, ifMatch string, input UpdateTicketInput) (*domain.Ticket, error)
	Assign(ctx context.Context, subject authz.Subject, ticketID, ifMatch, assigneeUserID string) (*domain.Ticket, error)
	Close(ctx context.Context, subject authz.Subject, ticketID, ifMatch string) (*domain.Ticket, error)
	SetPriority(ctx context.Context, subject authz.Subject, ticketID, ifMatch string, priority domain.TicketPriority) (*domain.Ticket, error)
	SetDueDate(ctx context.Context, subject authz.Subject, ticketID, ifMatch string, dueAt time.Time) (*domain.Ticket, error)
	ClearDueDate(ctx context.Context, subject authz.Subject, ticketID, ifMatch string) (*domain.Ticket, error)
	AddComment(ctx context.Context, subject authz.Subject, ticketID, ifMatch, text string) (*domain.TicketComment, *domain.Ticket, error)
}

// TicketQueries is the read surface of TicketService.
type TicketQueries interface {
	Get(ctx context.Context, subject authz.Subject, ticketID string) (*TicketDetails, error)
	ListMine(ctx context.Context, subject authz.Subject, filter ListFilter) (Page[domain.Ticket], error)
	ListAll(ctx context.Context, subject authz.Subject, filter ListFilter) (Page[domain.Ticket], error)
	History(ctx context.Context, subject authz.Subject, ticketID string, page, pageSize int) (Page[domain.TicketEvent], error)
	Comments(ctx context.Context, subject authz.Subject, ticketID string, page, pageSize int) (Page[domain.TicketComment], error)
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	events      repository.TicketEventRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	now         func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	EventRepo      repository.TicketEventRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	// Now overrides the wall clock.
	Now func() time.Time
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Title          string
	Description    string
	Priority       domain.TicketPriority
	DueAt          *time.Time
	AttachmentURLs []string
}

// UpdateTicketInput carries the editable text fields.
type UpdateTicketInput struct {
	Title       string
	Description string
}

// ListFilter describes listing filters supplied by callers.
type ListFilter struct {
	Status     *domain.TicketStatus
	Assigned   *bool
	AssigneeID *string
	Search     string
	Page       int
	PageSize   int
}

// Page is one slice of an ordered listing.
type Page[T any] struct {
	Items    []T
	Page     int
	PageSize int
	Total    int
}

// TicketDetails is a ticket together with its attachments.
type TicketDetails struct {
	Ticket      *domain.Ticket
	Attachments []domain.TicketAttachment
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		events:      deps.EventRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		now:         now,
	}
}

// clock returns the current instant in UTC at microsecond precision,
// the resolution Postgres stores.
func (s *TicketService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Create opens a new ticket owned by subject and returns it with the
// attachments created alongside it.
func (s *TicketService) Create(ctx context.Context, subject authz.Subject, input CreateTicketInput) (*TicketDetails, error) {
	if !isUUID(subject.UserID) {
		return nil, apperrors.NewUnauthorized("caller has no valid user id")
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if err := validatePriority(priority); err != nil {
		return nil, err
	}
	if err := validateAttachmentURLs(input.AttachmentURLs); err != nil {
		return nil, err
	}

	now := s.clock()
	ticket := &domain.Ticket{
		ID:              uuid.NewString(),
		Title:           title,
		Description:     description,
		Status:          domain.TicketStatusOpen,
		Priority:        priority,
		CreatedByUserID: subject.UserID,
		CreatedAt:       now,
	}
	if input.DueAt != nil {
		due := input.DueAt.UTC().Truncate(time.Microsecond)
		if err := validateDueDate(due, now); err != nil {
			return nil, err
		}
		ticket.DueAt = &due
	}

	attachments := make([]domain.TicketAttachment, 0, len(input.AttachmentURLs))
	for _, raw := range input.AttachmentURLs {
		url := strings.TrimSpace(raw)
		name := fileNameFromURL(url)
		attachments = append(attachments, domain.TicketAttachment{
			ID:          uuid.NewString(),
			TicketID:    ticket.ID,
			URL:         url,
			FileName:    name,
			ContentType: contentTypeFor(name),
			CreatedAt:   now,
		})
	}

	err := s.tickets.WithinTx(ctx, func(ctx context.Context, tx repository.TicketTx) error {
		if err := tx.Create(ctx, ticket); err != nil {
			return err
		}
		for i := range attachments {
			if err := tx.AddAttachment(ctx, &attachments[i]); err != nil {
				return err
			}
		}
		event, err := newTicketEvent(ticket.ID, domain.EventTicketCreated, subject.UserID, now, createdData{
			Title:       ticket.Title,
			Priority:    ticket.Priority,
			Attachments: len(input.AttachmentURLs),
		})
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	return &TicketDetails{Ticket: ticket, Attachments: attachments}, nil
}

// mutateFunc applies one transition to ticket inside the transaction.
// Returning a nil event persists nothing.
type mutateFunc func(ctx context.Context, tx repository.TicketTx, ticket *domain.Ticket, now time.Time) (*domain.TicketEvent, error)

// writeMode selects whether a mutation rewrites the ticket row.
type writeMode int

const (
	rowUpdate writeMode = iota
	// appendOnly writes the event (and side records) but leaves the row
	// and therefore the ETag untouched.
	appendOnly
)

// mutate runs the shared precondition envelope: existence, If-Match
// presence, ETag freshness, authorization; then fn, the version-checked
// update and the event append, all in one transaction.
func (s *TicketService) mutate(ctx context.Context, subject authz.Subject, rawID, ifMatch string, requirement authz.Requirement, mode writeMode, fn mutateFunc) (*domain.Ticket, error) {
	ticketID, ok := canonicalID(rawID)
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": rawID})
	}

	var result *domain.Ticket
	err := s.tickets.WithinTx(ctx, func(ctx context.Context, tx repository.TicketTx) error {
		current, err := tx.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return err
		}
		if strings.TrimSpace(ifMatch) == "" {
			return apperrors.NewPreconditionRequired()
		}
		if !etag.Matches(ifMatch, etag.Compute(current)) {
			return apperrors.NewPreconditionFailed()
		}
		if !authz.Authorize(subject, requirement, current).Allowed() {
			return apperrors.NewForbidden(fmt.Sprintf("%s access to ticket denied", requirement))
		}

		now := s.clock()
		next := current.Clone()
		event, err := fn(ctx, tx, next, now)
		if err != nil {
			return err
		}
		if event == nil {
			result = current
			return nil
		}
		if mode == rowUpdate {
			if err := tx.Update(ctx, next); err != nil {
				return err
			}
		}
		if err := tx.AppendEvent(ctx, event); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConcurrencyConflict) {
			return nil, apperrors.NewConcurrencyConflict(err)
		}
		return nil, err
	}
	return result, nil
}

func requireOpen(ticket *domain.Ticket) error {
	if ticket.IsClosed() {
		return apperrors.NewTicketClosed(ticket.ID)
	}
	return nil
}

// Update edits title and description.
func (s *TicketService) Update(ctx context.Context, subject authz.Subject, ticketID, ifMatch string, input UpdateTicketInput) (*domain.Ticket, error) {
	return s.mutate(ctx, subject, ticketID, ifMatch, authz.Write, rowUpdate, func(_ context.Context, _ repository.TicketTx, t *domain.Ticket, now time.Time) (*domain.TicketEvent, error) {
		if err := requireOpen(t); err != nil {
			return nil, err
		}
		title := strings.TrimSpace(input.Title)
		description := strings.TrimSpace(input.Description)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		if err := validateDescription(description); err != nil {
			return nil, err
		}
		data := updatedData{
			Old: textFields{Title: t.Title, Description: t.Description},
			New: textFields{Title: title, Description: description},
		}
		t.Title, t.Description = title, description
		return newTicketEvent(t.ID, domain.EventTicketUpdated, subject.UserID, now, data)
	})
}

// Assign hands the ticket to another user. Only admins may assign.
func (s *TicketService) Assign(ctx context.Context, subject authz.Subject, ticketID, ifMatch, assigneeUserID string) (*domain.Ticket, error) {
	return s.mutate(ctx, subject, ticketID, ifMatch, authz.Assign, rowUpdate, func(ctx context.Context, tx repository.TicketTx, t *domain.Ticket, now time.Time) (*domain.TicketEvent, error) {
		if err := requireOpen(t); err != nil {
			return nil, err
		}
		assignee, ok := canonicalID(assigneeUserID)
		if !ok {
			return nil, apperrors.NewValidationError("assignee_user_id must be a valid id", map[string]any{"field": "assignee_user_id"})
		}
		exists, err := tx.UserExists(ctx, assignee)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperrors.NewValidationError("assignee does not exist", map[string]any{"field": "assignee_user_id"})
		}
		data := assignedData{OldAssigneeUserID: t.AssignedToUserID, NewAssigneeUserID: assignee}
		t.AssignedToUserID = &assignee
		t.AssignedAt = &now
		return newTicketEvent(t.ID, domain.EventTicketAssigned, subject.UserID, now, data)
	})
}

// Close moves the ticket to its terminal state. Closing a closed ticket
// returns it unchanged and records nothing.
func (s *TicketService) Close(ctx context.Context, subject authz.Subject, ticketID, ifMatch string) (*domain.Ticket, error) {
	return s.mutate(ctx, subject, ticketID, ifMatch, authz.Write, rowUpdate, func(_ context.Context, _ repository.TicketTx, t *domain.Ticket, now time.Time) (*domain.TicketEvent, error) {
		if t.IsClosed() {
			return nil, nil
		}
		t.Status = domain.TicketStatusClosed
		t.ClosedAt = &now
		return newTicketEvent(t.ID, domain.EventTicketClosed, subject.UserID, now, nil)
	})
}

// SetPriority changes the ticket priority.
func (s *TicketService) SetPriority(ctx context.Context, subject authz.Subject, ticketID, ifMatch string, priority domain.TicketPriority) (*domain.Ticket, error) {
	return s.mutate(ctx, subject, ticketID, ifMatch, authz.Write, rowUpdate, func(_ context.Context, _ repository.TicketTx, t *domain.Ticket, now time.Time) (*domain.TicketEvent, error) {
		if err := requireOpen(t); err != nil {
			return nil, err
		}
		if err := validatePriority(priority); err != nil {
			return nil, err
		}
		data := priorityData{OldPriority: t.Priority, NewPriority: priority}
		t.Priority = priority
		return newTicketEvent(t.ID, domain.EventTicketPriorityChanged, subject.UserID, now, data)
	})
}

// SetDueDate sets or moves the due date. It may not lie in the past.
func (s *TicketService) SetDueDate(ctx context.Context, subject authz.Subject, ticketID, ifMatch string, dueAt time.Time) (*domain.Ticket, error) {
	return s.mutate(ctx, subject, ticketID, ifMatch, authz.Write, rowUpdate, func(_ context.Context, _ repository.TicketTx, t *domain.Ticket, now time.Time) (*domain.TicketEvent, error) {
		if err := requireOpen(t); err != nil {
			return nil, err
		}
		due := dueAt.UTC().Truncate(time.Microsecond)
		if err := validateDueDate(due, now); err != nil {
			return nil, err
		}
		data := dueChangedData{OldDueAt: t.DueAt, NewDueAt: due}
		t.DueAt = &due
		return newTicketEvent(t.ID, domain.EventTicketDueChanged, subject.UserID, now, data)
	})
}

// ClearDueDate removes the due date.
func (s *TicketService) ClearDueDate(ctx context.Context, subject authz.Subject, ticketID, ifMatch string) (*domain.Ticket, error) {
	return s.mutate(ctx, subject, ticketID, ifMatch, authz.Write, rowUpdate, func(_ context.Context, _ repository.TicketTx, t *domain.Ticket, now time.Time) (*domain.TicketEvent, error) {
		if err := requireOpen(t); err != nil {
			return nil, err
		}
		data := dueClearedData{OldDueAt: t.DueAt}
		t.DueAt = nil
		return newTicketEvent(t.ID, domain.EventTicketDueCleared, subject.UserID, now, data)
	})
}

// AddComment appends to the ticket thread. Anyone who can read the ticket
// may comment, including on closed tickets. The ticket row itself is not
// modified, so its ETag is unchanged.
func (s *TicketService) AddComment(ctx context.Context, subject authz.Subject, ticketID, ifMatch, text string) (*domain.TicketComment, *domain.Ticket, error) {
	var comment *domain.TicketComment
	ticket, err := s.mutate(ctx, subject, ticketID, ifMatch, authz.Read, appendOnly, func(ctx context.Context, tx repository.TicketTx, t *domain.Ticket, now time.Time) (*domain.TicketEvent, error) {
		body := strings.TrimSpace(text)
		if err := validateCommentText(body); err != nil {
			return nil, err
		}
		comment = &domain.TicketComment{
			ID:           uuid.NewString(),
			TicketID:     t.ID,
			AuthorUserID: subject.UserID,
			Text:         body,
			CreatedAt:    now,
		}
		if err := tx.AddComment(ctx, comment); err != nil {
			return nil, err
		}
		return newTicketEvent(t.ID, domain.EventTicketCommentAdded, subject.UserID, now, commentAddedData{CommentID: comment.ID})
	})
	if err != nil {
		return nil, nil, err
	}
	return comment, ticket, nil
}

// Get returns a ticket the subject may read, with its attachments.
func (s *TicketService) Get(ctx context.Context, subject authz.Subject, ticketID string) (*TicketDetails, error) {
	ticket, err := s.readable(ctx, subject, ticketID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return &TicketDetails{Ticket: ticket, Attachments: attachments}, nil
}

// ListMine lists tickets created by subject.
func (s *TicketService) ListMine(ctx context.Context, subject authz.Subject, filter ListFilter) (Page[domain.Ticket], error) {
	owner := subject.UserID
	return s.list(ctx, filter, &owner)
}

// ListAll lists every ticket. Admin only.
func (s *TicketService) ListAll(ctx context.Context, subject authz.Subject, filter ListFilter) (Page[domain.Ticket], error) {
	if !subject.Admin {
		return Page[domain.Ticket]{}, apperrors.NewForbidden("only admins can list all tickets")
	}
	return s.list(ctx, filter, nil)
}

func (s *TicketService) list(ctx context.Context, filter ListFilter, owner *string) (Page[domain.Ticket], error) {
	pagination := repository.NewPagination(filter.Page, filter.PageSize)
	items, total, err := s.tickets.List(ctx, repository.TicketFilter{
		OwnerID:    owner,
		Status:     filter.Status,
		Assigned:   filter.Assigned,
		AssigneeID: filter.AssigneeID,
		Search:     filter.Search,
		Pagination: pagination,
	})
	if err != nil {
		return Page[domain.Ticket]{}, fmt.Errorf("list tickets: %w", err)
	}
	return Page[domain.Ticket]{Items: items, Page: pagination.Page, PageSize: pagination.PageSize, Total: total}, nil
}

// History lists the ticket's audit trail, newest first.
func (s *TicketService) History(ctx context.Context, subject authz.Subject, ticketID string, page, pageSize int) (Page[domain.TicketEvent], error) {
	ticket, err := s.readable(ctx, subject, ticketID)
	if err != nil {
		return Page[domain.TicketEvent]{}, err
	}
	pagination := repository.NewPagination(page, pageSize)
	items, total, err := s.events.ListByTicket(ctx, ticket.ID, pagination)
	if err != nil {
		return Page[domain.TicketEvent]{}, fmt.Errorf("list events: %w", err)
	}
	return Page[domain.TicketEvent]{Items: items, Page: pagination.Page, PageSize: pagination.PageSize, Total: total}, nil
}

// Comments lists the ticket thread, oldest first.
func (s *TicketService) Comments(ctx context.Context, subject authz.Subject, ticketID string, page, pageSize int) (Page[domain.TicketComment], error) {
	ticket, err := s.readable(ctx, subject, ticketID)
	if err != nil {
		return Page[domain.TicketComment]{}, err
	}
	pagination := repository.NewPagination(page, pageSize)
	items, total, err := s.comments.ListByTicket(ctx, ticket.ID, pagination)
	if err != nil {
		return Page[domain.TicketComment]{}, fmt.Errorf("list comments: %w", err)
	}
	return Page[domain.TicketComment]{Items: items, Page: pagination.Page, PageSize: pagination.PageSize, Total: total}, nil
}

func (s *TicketService) readable(ctx context.Context, subject authz.Subject, rawID string) (*domain.Ticket, error) {
	ticketID, ok := canonicalID(rawID)
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": rawID})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	if !authz.Authorize(subject, authz.Read, ticket).Allowed() {
		return nil, apperrors.NewForbidden("read access to ticket denied")
	}
	return ticket, nil
}
