package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/smartticket/ticket-api/internal/auth"
	"github.com/smartticket/ticket-api/internal/idempotency"
	"github.com/smartticket/ticket-api/internal/observability"
)

// Idempotency replays the recorded outcome of a keyed POST instead of
// running the handler again. Only successful outcomes are recorded, and
// only for authenticated callers; the ledger is scoped per user.
func Idempotency(ledger *idempotency.Ledger, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}
		key := c.Get(idempotency.HeaderKey)
		if key == "" {
			return c.Next()
		}
		principal, ok := auth.PrincipalFromContext(c)
		if !ok {
			return c.Next()
		}
		if err := idempotency.ValidateKey(key); err != nil {
			return err
		}

		ctx := c.UserContext()
		scope := idempotency.Scope{
			UserID: principal.UserID(),
			Key:    key,
			Path:   c.Path(),
			Method: c.Method(),
		}
		record, err := ledger.Find(ctx, scope)
		if err != nil {
			return err
		}
		if record != nil {
			c.Set(idempotency.HeaderReplayed, "true")
			c.Status(record.StatusCode)
			if len(record.ResponseBody) == 0 {
				return nil
			}
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(record.ResponseBody)
		}

		if err := c.Next(); err != nil {
			return err
		}
		status := c.Response().StatusCode()
		if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
			return nil
		}
		if _, err := ledger.Record(ctx, scope, status, c.Response().Body()); err != nil {
			observability.ForRequest(ctx, logger).Warn("idempotent outcome not recorded",
				zap.String("path", scope.Path),
				zap.Error(err),
			)
		}
		return nil
	}
}
