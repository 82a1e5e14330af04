package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/smartticket/ticket-api/internal/auth"
	"github.com/smartticket/ticket-api/internal/authz"
	"github.com/smartticket/ticket-api/internal/domain"
	"github.com/smartticket/ticket-api/internal/repository"
	apperrors "github.com/smartticket/ticket-api/pkg/util/errorutil"
)

// RequireTicket authorizes the caller against the ticket named by the :id
// route parameter. A ticket that does not exist is passed to the handler
// where the requirement allows it, so the handler can answer 404. An :id
// that is missing or not a ticket id is denied.
func RequireTicket(tickets repository.TicketRepository, requirement authz.Requirement) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := auth.PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		id := c.Params("id")
		if id == "" {
			return apperrors.NewForbidden("ticket id missing from route")
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return apperrors.NewForbidden("ticket id is not valid")
		}

		var ticket *domain.Ticket
		found, err := tickets.GetByID(c.UserContext(), parsed.String())
		switch {
		case err == nil:
			ticket = found
		case errors.Is(err, repository.ErrNotFound):
		default:
			return fmt.Errorf("load ticket for authorization: %w", err)
		}

		if !authz.Authorize(principal.Subject(), requirement, ticket).Allowed() {
			return apperrors.NewForbidden(fmt.Sprintf("%s access to ticket denied", requirement))
		}
		return c.Next()
	}
}
