package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/smartticket/ticket-api/internal/api/dto"
	"github.com/smartticket/ticket-api/internal/auth"
	"github.com/smartticket/ticket-api/internal/domain"
	"github.com/smartticket/ticket-api/internal/etag"
	"github.com/smartticket/ticket-api/internal/service"
	apperrors "github.com/smartticket/ticket-api/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	commands service.TicketOperations
	queries  service.TicketQueries
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(commands service.TicketOperations, queries service.TicketQueries) *TicketsHandler {
	return &TicketsHandler{commands: commands, queries: queries}
}

func principalOf(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

// respondTicket writes ticket with its current ETag.
func respondTicket(c *fiber.Ctx, status int, ticket *domain.Ticket, attachments []domain.TicketAttachment) error {
	c.Set(fiber.HeaderETag, etag.Compute(ticket))
	return c.Status(status).JSON(fiber.Map{"data": ticketResponse(ticket, attachments)})
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	created, err := h.commands.Create(c.UserContext(), principal.Subject(), service.CreateTicketInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		DueAt:          req.DueAt,
		AttachmentURLs: req.AttachmentURLs,
	})
	if err != nil {
		return err
	}
	c.Location(strings.TrimSuffix(c.Path(), "/") + "/" + created.Ticket.ID)
	return respondTicket(c, http.StatusCreated, created.Ticket, created.Attachments)
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	details, err := h.queries.Get(c.UserContext(), principal.Subject(), c.Params("id"))
	if err != nil {
		return err
	}
	return respondTicket(c, http.StatusOK, details.Ticket, details.Attachments)
}

// ListMine GET /tickets/mine.
func (h *TicketsHandler) ListMine(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	filter, err := parseListFilter(c)
	if err != nil {
		return err
	}
	page, err := h.queries.ListMine(c.UserContext(), principal.Subject(), filter)
	if err != nil {
		return err
	}
	return c.JSON(summaryPage(page))
}

// ListAll GET /tickets. Admin only.
func (h *TicketsHandler) ListAll(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	filter, err := parseListFilter(c)
	if err != nil {
		return err
	}
	page, err := h.queries.ListAll(c.UserContext(), principal.Subject(), filter)
	if err != nil {
		return err
	}
	return c.JSON(summaryPage(page))
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.commands.Update(c.UserContext(), principal.Subject(), c.Params("id"), c.Get(fiber.HeaderIfMatch), service.UpdateTicketInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return respondTicket(c, http.StatusOK, ticket, nil)
}

// AssignTicket PUT /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.commands.Assign(c.UserContext(), principal.Subject(), c.Params("id"), c.Get(fiber.HeaderIfMatch), req.AssigneeUserID)
	if err != nil {
		return err
	}
	return respondTicket(c, http.StatusOK, ticket, nil)
}

// CloseTicket PUT /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	ticket, err := h.commands.Close(c.UserContext(), principal.Subject(), c.Params("id"), c.Get(fiber.HeaderIfMatch))
	if err != nil {
		return err
	}
	return respondTicket(c, http.StatusOK, ticket, nil)
}

// SetPriority PUT /tickets/:id/priority.
func (h *TicketsHandler) SetPriority(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.UpdatePriorityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.commands.SetPriority(c.UserContext(), principal.Subject(), c.Params("id"), c.Get(fiber.HeaderIfMatch), req.Priority)
	if err != nil {
		return err
	}
	return respondTicket(c, http.StatusOK, ticket, nil)
}

// SetDueDate PUT /tickets/:id/due-date.
func (h *TicketsHandler) SetDueDate(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.UpdateDueDateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	var dueAt time.Time
	if req.DueAt != nil {
		dueAt = *req.DueAt
	}
	ticket, err := h.commands.SetDueDate(c.UserContext(), principal.Subject(), c.Params("id"), c.Get(fiber.HeaderIfMatch), dueAt)
	if err != nil {
		return err
	}
	return respondTicket(c, http.StatusOK, ticket, nil)
}

// ClearDueDate DELETE /tickets/:id/due-date.
func (h *TicketsHandler) ClearDueDate(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	ticket, err := h.commands.ClearDueDate(c.UserContext(), principal.Subject(), c.Params("id"), c.Get(fiber.HeaderIfMatch))
	if err != nil {
		return err
	}
	return respondTicket(c, http.StatusOK, ticket, nil)
}

// AddComment POST /tickets/:id/comments. The ticket's ETag is unchanged
// by a comment and is echoed back.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, ticket, err := h.commands.AddComment(c.UserContext(), principal.Subject(), c.Params("id"), c.Get(fiber.HeaderIfMatch), req.Text)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderETag, etag.Compute(ticket))
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	page, err := h.queries.Comments(c.UserContext(), principal.Subject(), c.Params("id"), parseInt(c.Query("page"), 1), parseInt(c.Query("page_size"), 0))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, commentResponse(&page.Items[i]))
	}
	return c.JSON(dto.PagedResponse[dto.CommentResponse]{Data: items, Meta: pageMeta(page.Page, page.PageSize, page.Total)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	page, err := h.queries.History(c.UserContext(), principal.Subject(), c.Params("id"), parseInt(c.Query("page"), 1), parseInt(c.Query("page_size"), 0))
	if err != nil {
		return err
	}
	items := make([]dto.EventResponse, 0, len(page.Items))
	for _, event := range page.Items {
		items = append(items, dto.EventResponse{
			ID:          event.ID,
			Type:        event.Type,
			ActorUserID: event.ActorUserID,
			CreatedAt:   event.CreatedAt,
			Data:        event.Data,
		})
	}
	return c.JSON(dto.PagedResponse[dto.EventResponse]{Data: items, Meta: pageMeta(page.Page, page.PageSize, page.Total)})
}

func parseListFilter(c *fiber.Ctx) (service.ListFilter, error) {
	filter := service.ListFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), 0),
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := domain.ParseTicketStatus(raw)
		if !ok {
			return filter, apperrors.NewValidationError("status is not valid", map[string]any{"field": "status"})
		}
		filter.Status = &status
	}
	if raw := c.Query("assigned"); raw != "" {
		assigned, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.NewValidationError("assigned must be a boolean", map[string]any{"field": "assigned"})
		}
		filter.Assigned = &assigned
	}
	if raw := strings.TrimSpace(c.Query("assignee_id")); raw != "" {
		if _, err := uuid.Parse(raw); err != nil {
			return filter, apperrors.NewValidationError("assignee_id must be a valid id", map[string]any{"field": "assignee_id"})
		}
		filter.AssigneeID = &raw
	}
	return filter, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func pageMeta(page, pageSize, total int) dto.PageMeta {
	return dto.PageMeta{Page: page, PageSize: pageSize, Total: total}
}

func summaryPage(page service.Page[domain.Ticket]) dto.PagedResponse[dto.TicketSummary] {
	items := make([]dto.TicketSummary, 0, len(page.Items))
	for i := range page.Items {
		t := &page.Items[i]
		items = append(items, dto.TicketSummary{
			ID:               t.ID,
			Title:            t.Title,
			Status:           t.Status,
			Priority:         t.Priority,
			CreatedByUserID:  t.CreatedByUserID,
			AssignedToUserID: t.AssignedToUserID,
			CreatedAt:        t.CreatedAt,
			DueAt:            t.DueAt,
		})
	}
	return dto.PagedResponse[dto.TicketSummary]{Data: items, Meta: pageMeta(page.Page, page.PageSize, page.Total)}
}

func ticketResponse(ticket *domain.Ticket, attachments []domain.TicketAttachment) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:               ticket.ID,
		Title:            ticket.Title,
		Description:      ticket.Description,
		Status:           ticket.Status,
		Priority:         ticket.Priority,
		CreatedByUserID:  ticket.CreatedByUserID,
		AssignedToUserID: ticket.AssignedToUserID,
		CreatedAt:        ticket.CreatedAt,
		DueAt:            ticket.DueAt,
		ClosedAt:         ticket.ClosedAt,
		AssignedAt:       ticket.AssignedAt,
	}
	for _, a := range attachments {
		resp.AttachmentURLs = append(resp.AttachmentURLs, a.URL)
	}
	return resp
}

func commentResponse(comment *domain.TicketComment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:           comment.ID,
		TicketID:     comment.TicketID,
		AuthorUserID: comment.AuthorUserID,
		Text:         comment.Text,
		CreatedAt:    comment.CreatedAt,
	}
}
