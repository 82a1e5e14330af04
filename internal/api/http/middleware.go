package http

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartticket/ticket-api/internal/api/dto"
	"github.com/smartticket/ticket-api/internal/observability"
	apperrors "github.com/smartticket/ticket-api/pkg/util/errorutil"
)

const (
	problemTypeBase      = "https://errors.smartticket.dev/"
	problemContentType   = "application/problem+json"
	internalErrorDetail  = "an internal error occurred"
	maxCorrelationLength = 128
)

// NewApp builds the fiber application. Errors that escape the middleware
// chain are rendered as problem+json too.
func NewApp(name string, logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               name,
		Immutable:             true,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return writeProblem(c, err, logger, metrics)
		},
	})
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestid.New())
	app.Use(correlationMiddleware())
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
}

// correlationMiddleware adopts the caller's X-Correlation-Id or mints one,
// stores it on the request context and echoes it on the response.
func correlationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(observability.CorrelationHeader))
		if id == "" || len(id) > maxCorrelationLength {
			id = uuid.NewString()
		}
		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), id))
		c.Set(observability.CorrelationHeader, id)
		return c.Next()
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				observability.ForRequest(c.UserContext(), logger).Error("panic recovered",
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				err = writeProblem(c, err, logger, metrics)
			}
		}()
		return c.Next()
	}
}

// writeProblem renders err as application/problem+json. Server errors are
// logged and their detail replaced with a generic message.
func writeProblem(c *fiber.Ctx, err error, logger *zap.Logger, metrics *observability.Metrics) error {
	domainErr := apperrors.ToDomainError(err)
	metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)

	detail := domainErr.Message
	details := domainErr.Details
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		observability.ForRequest(c.UserContext(), logger).Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		detail = internalErrorDetail
		details = nil
	}

	requestID, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	problem := dto.Problem{
		Type:          problemTypeBase + domainErr.Code,
		Title:         statusTitle(domainErr.HTTPStatus),
		Status:        domainErr.HTTPStatus,
		Detail:        detail,
		Instance:      c.Path(),
		ErrorCode:     domainErr.Code,
		TraceID:       requestID,
		CorrelationID: observability.CorrelationID(c.UserContext()),
		Details:       details,
	}
	return c.Status(domainErr.HTTPStatus).JSON(problem, problemContentType)
}

func statusTitle(status int) string {
	if text := utils.StatusMessage(status); text != "" {
		return text
	}
	return "Error"
}
