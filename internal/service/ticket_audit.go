package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartticket/ticket-api/internal/authz"
	"github.com/smartticket/ticket-api/internal/domain"
	"github.com/smartticket/ticket-api/internal/events"
	"github.com/smartticket/ticket-api/internal/observability"
	apperrors "github.com/smartticket/ticket-api/pkg/util/errorutil"
)

// Audit outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRejected  = "rejected"
)

// AuditEntry describes one completed ticket operation.
type AuditEntry struct {
	Operation string
	Subject   authz.Subject
	TicketID  string
	Err       error
	Duration  time.Duration
}

// TicketAudit receives an entry after every ticket operation.
type TicketAudit interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditLog writes audit entries to zap and publishes them on the event
// dispatcher.
type AuditLog struct {
	logger     *zap.Logger
	dispatcher events.Dispatcher
	now        func() time.Time
}

// NewAuditLog constructs the audit sink. dispatcher may be nil.
func NewAuditLog(logger *zap.Logger, dispatcher events.Dispatcher) *AuditLog {
	return &AuditLog{logger: logger.Named("audit"), dispatcher: dispatcher, now: time.Now}
}

// Record logs entry and publishes the matching event.
func (a *AuditLog) Record(ctx context.Context, entry AuditEntry) {
	outcome := OutcomeSucceeded
	eventType := events.EventTicketMutated
	code := ""
	if entry.Err != nil {
		outcome = OutcomeRejected
		eventType = events.EventTicketMutationRejected
		code = apperrors.CodeOf(entry.Err)
	}
	correlationID := observability.CorrelationID(ctx)

	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("ticket_id", entry.TicketID),
		zap.String("actor_user_id", entry.Subject.UserID),
		zap.Bool("actor_admin", entry.Subject.Admin),
		zap.String("outcome", outcome),
		zap.Duration("duration", entry.Duration),
		zap.String("correlation_id", correlationID),
	}
	if code != "" {
		fields = append(fields, zap.String("error_code", code))
	}
	if code == apperrors.CodeInternal {
		a.logger.Error("ticket operation failed", append(fields, zap.Error(entry.Err))...)
	} else {
		a.logger.Info("ticket operation", fields...)
	}

	if a.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		TicketID:      entry.TicketID,
		Actor:         events.Actor{UserID: entry.Subject.UserID, Admin: entry.Subject.Admin},
		CorrelationID: correlationID,
		Timestamp:     a.now().UTC(),
		Payload: events.MutationPayload{
			Operation:  entry.Operation,
			Outcome:    outcome,
			ErrorCode:  code,
			DurationMs: entry.Duration.Milliseconds(),
		},
	}
	if err := a.dispatcher.Publish(ctx, event); err != nil {
		a.logger.Warn("publish audit event", zap.Error(err), zap.String("ticket_id", entry.TicketID))
	}
}

// AuditedTicketService runs each operation on inner, then reports it to
// audit. Results pass through unchanged.
type AuditedTicketService struct {
	inner TicketOperations
	audit TicketAudit
}

var _ TicketOperations = (*AuditedTicketService)(nil)

// NewAuditedTicketService composes inner with audit.
func NewAuditedTicketService(inner TicketOperations, audit TicketAudit) *AuditedTicketService {
	return &AuditedTicketService{inner: inner, audit: audit}
}

func (a *AuditedTicketService) record(ctx context.Context, op string, subject authz.Subject, ticketID string, started time.Time, err error) {
	a.audit.Record(ctx, AuditEntry{
		Operation: op,
		Subject:   subject,
		TicketID:  ticketID,
		Err:       err,
		Duration:  time.Since(started),
	})
}

func (a *AuditedTicketService) Create(ctx context.Context, subject authz.Subject, input CreateTicketInput) (*TicketDetails, error) {
	started := time.Now()
	created, err := a.inner.Create(ctx, subject, input)
	ticketID := ""
	if created != nil {
		ticketID = created.Ticket.ID
	}
	a.record(ctx, "create", subject, ticketID, started, err)
	return created, err
}

func (a *AuditedTicketService) Update(ctx context.Context, subject authz.Subject, ticketID, ifMatch string, input UpdateTicketInput) (*domain.Ticket, error) {
	started := time.Now()
	ticket, err := a.inner.Update(ctx, subject, ticketID, ifMatch, input)
	a.record(ctx, "update", subject, ticketID, started, err)
	return ticket, err
}

func (a *AuditedTicketService) Assign(ctx context.Context, subject authz.Subject, ticketID, ifMatch, assigneeUserID string) (*domain.Ticket, error) {
	started := time.Now()
	ticket, err := a.inner.Assign(ctx, subject, ticketID, ifMatch, assigneeUserID)
	a.record(ctx, "assign", subject, ticketID, started, err)
	return ticket, err
}

func (a *AuditedTicketService) Close(ctx context.Context, subject authz.Subject, ticketID, ifMatch string) (*domain.Ticket, error) {
	started := time.Now()
	ticket, err := a.inner.Close(ctx, subject, ticketID, ifMatch)
	a.record(ctx, "close", subject, ticketID, started, err)
	return ticket, err
}

func (a *AuditedTicketService) SetPriority(ctx context.Context, subject authz.Subject, ticketID, ifMatch string, priority domain.TicketPriority) (*domain.Ticket, error) {
	started := time.Now()
	ticket, err := a.inner.SetPriority(ctx, subject, ticketID, ifMatch, priority)
	a.record(ctx, "set_priority", subject, ticketID, started, err)
	return ticket, err
}

func (a *AuditedTicketService) SetDueDate(ctx context.Context, subject authz.Subject, ticketID, ifMatch string, dueAt time.Time) (*domain.Ticket, error) {
	started := time.Now()
	ticket, err := a.inner.SetDueDate(ctx, subject, ticketID, ifMatch, dueAt)
	a.record(ctx, "set_due_date", subject, ticketID, started, err)
	return ticket, err
}

func (a *AuditedTicketService) ClearDueDate(ctx context.Context, subject authz.Subject, ticketID, ifMatch string) (*domain.Ticket, error) {
	started := time.Now()
	ticket, err := a.inner.ClearDueDate(ctx, subject, ticketID, ifMatch)
	a.record(ctx, "clear_due_date", subject, ticketID, started, err)
	return ticket, err
}

func (a *AuditedTicketService) AddComment(ctx context.Context, subject authz.Subject, ticketID, ifMatch, text string) (*domain.TicketComment, *domain.Ticket, error) {
	started := time.Now()
	comment, ticket, err := a.inner.AddComment(ctx, subject, ticketID, ifMatch, text)
	a.record(ctx, "add_comment", subject, ticketID, started, err)
	return comment, ticket, err
}
