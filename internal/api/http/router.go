package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tickets/internal/api/http/handlers"
	"github.com/spec-kit/tickets/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Pages          *handlers.PagesHandler
	Print          *handlers.PrintHandler
	API            *handlers.APIHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Everything except the health checks
// requires authentication.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/token", cfg.API.Token)
	secured := api.Group("", cfg.AuthMiddleware.API())
	secured.Get("/tickets", cfg.API.ListTickets)
	secured.Post("/tickets", cfg.API.CreateTicket)
	secured.Get("/tickets/:id", cfg.API.GetTicket)
	secured.Post("/tickets/:id/close", cfg.API.CloseTicket)
	secured.Get("/history", cfg.API.History)
	secured.Get("/sheets/week", cfg.API.WeekSheet)
	secured.Get("/sheets/today", cfg.API.TodaySheet)

	basic := cfg.AuthMiddleware.Basic()
	app.Get("/metrics", basic, cfg.Health.Metrics)

	app.Get("/", basic, cfg.Pages.Home)
	app.Get("/today", basic, cfg.Pages.Today)
	app.Get("/weekly", basic, cfg.Pages.Weekly)
	app.Get("/monthly", basic, cfg.Pages.Monthly)
	app.Get("/tickets", basic, cfg.Pages.Tickets)
	app.Get("/history", basic, cfg.Pages.History)
	app.Post("/add", basic, cfg.Pages.Add)
	app.Post("/done/:id", basic, cfg.Pages.Done)
	app.Get("/theme/:mode", basic, cfg.Pages.SetTheme)

	app.Get("/print/test", basic, cfg.Print.Test)
	app.Post("/print/ticket/:id", basic, cfg.Print.Ticket)
	app.Post("/print/weekly", basic, cfg.Print.Weekly)
	app.Post("/print/today", basic, cfg.Print.Today)
	app.Post("/print/free", basic, cfg.Print.Free)
}
