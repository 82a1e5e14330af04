package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartticket/ticket-api/internal/api/http/handlers"
	"github.com/smartticket/ticket-api/internal/auth"
	"github.com/smartticket/ticket-api/internal/authz"
	"github.com/smartticket/ticket-api/internal/repository"
)

// ticketPrefixes are the mount points of the ticket API. The versioned
// path is an alias.
var ticketPrefixes = []string{"/api/tickets", "/api/v1/tickets"}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	Idempotency    fiber.Handler
	TicketRepo     repository.TicketRepository
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/api/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Users.Me)

	for _, prefix := range ticketPrefixes {
		group := app.Group(prefix, cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Idempotency)
		registerTicketRoutes(group, cfg)
	}
}

func registerTicketRoutes(r fiber.Router, cfg RouteConfig) {
	h := cfg.Tickets
	read := RequireTicket(cfg.TicketRepo, authz.Read)
	write := RequireTicket(cfg.TicketRepo, authz.Write)
	assign := RequireTicket(cfg.TicketRepo, authz.Assign)

	r.Post("/", h.CreateTicket)
	r.Get("/", auth.RequireAdmin(), h.ListAll)
	r.Get("/mine", h.ListMine)

	r.Get("/:id", read, h.GetTicket)
	r.Put("/:id", write, h.UpdateTicket)
	r.Put("/:id/assign", assign, h.AssignTicket)
	r.Put("/:id/close", write, h.CloseTicket)
	r.Put("/:id/priority", write, h.SetPriority)
	r.Put("/:id/due-date", write, h.SetDueDate)
	r.Delete("/:id/due-date", write, h.ClearDueDate)
	r.Get("/:id/comments", read, h.ListComments)
	r.Post("/:id/comments", read, h.AddComment)
	r.Get("/:id/history", read, h.History)
}
