package handlers

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/tickets/internal/api/dto"
	"github.com/spec-kit/tickets/internal/dates"
	"github.com/spec-kit/tickets/internal/flash"
	"github.com/spec-kit/tickets/internal/service"
	"github.com/spec-kit/tickets/internal/web"
	apperrors "github.com/spec-kit/tickets/pkg/util/errorutil"
)

// ThemeCookie stores the chosen UI theme.
const ThemeCookie = "theme"

const themeCookieMaxAge = 365 * 24 * 60 * 60

// PagesHandler serves the HTML views and form posts.
type PagesHandler struct {
	tickets      *service.TicketService
	flashes      *flash.Manager
	validator    *dto.Validator
	logger       *zap.Logger
	defaultTheme string
	defaultTags  string
}

// PagesDependencies bundles collaborators for PagesHandler.
type PagesDependencies struct {
	Tickets      *service.TicketService
	Flashes      *flash.Manager
	Validator    *dto.Validator
	Logger       *zap.Logger
	DefaultTheme string
	DefaultTags  string
}

// NewPagesHandler constructs handler.
func NewPagesHandler(deps PagesDependencies) *PagesHandler {
	return &PagesHandler{
		tickets:      deps.Tickets,
		flashes:      deps.Flashes,
		validator:    deps.Validator,
		logger:       deps.Logger,
		defaultTheme: deps.DefaultTheme,
		defaultTags:  deps.DefaultTags,
	}
}

// Theme resolves the theme cookie, falling back to the configured default.
func (h *PagesHandler) Theme(c *fiber.Ctx) string {
	switch strings.ToLower(c.Cookies(ThemeCookie)) {
	case "dark":
		return "dark"
	case "light":
		return "light"
	}
	return h.defaultTheme
}

func (h *PagesHandler) page(c *fiber.Ctx, title, active string) web.Page {
	return web.Page{
		Title:   title,
		Active:  active,
		Theme:   h.Theme(c),
		Flashes: h.flashes.Pop(c),
		Today:   dates.DateKey(h.tickets.Now()),
	}
}

// Home GET /.
func (h *PagesHandler) Home(c *fiber.Ctx) error {
	return c.Redirect("/today")
}

// Today GET /today.
func (h *PagesHandler) Today(c *fiber.Ctx) error {
	tickets, err := h.tickets.ListToday(c.UserContext(), h.tickets.Now())
	if err != nil {
		return err
	}
	return c.Render("today", fiber.Map{
		"Page":        h.page(c, "Today", "today"),
		"Tickets":     tickets,
		"DefaultTags": h.defaultTags,
	})
}

// Weekly GET /weekly.
func (h *PagesHandler) Weekly(c *fiber.Ctx) error {
	week, err := h.tickets.ListWeek(c.UserContext(), h.tickets.Now())
	if err != nil {
		return err
	}
	return c.Render("weekly", fiber.Map{
		"Page": h.page(c, "Week", "weekly"),
		"Week": week,
	})
}

// Monthly GET /monthly.
func (h *PagesHandler) Monthly(c *fiber.Ctx) error {
	month, err := h.tickets.ListMonth(c.UserContext(), h.tickets.Now())
	if err != nil {
		return err
	}
	return c.Render("monthly", fiber.Map{
		"Page":  h.page(c, month.Start.Format("January 2006"), "monthly"),
		"Month": month,
	})
}

// Tickets GET /tickets.
func (h *PagesHandler) Tickets(c *fiber.Ctx) error {
	tickets, err := h.tickets.ListOpen(c.UserContext())
	if err != nil {
		return err
	}
	return c.Render("tickets", fiber.Map{
		"Page":        h.page(c, "All open", "tickets"),
		"Tickets":     tickets,
		"DefaultTags": h.defaultTags,
	})
}

// History GET /history.
func (h *PagesHandler) History(c *fiber.Ctx) error {
	tickets, err := h.tickets.ListClosed(c.UserContext())
	if err != nil {
		return err
	}
	return c.Render("history", fiber.Map{
		"Page":    h.page(c, "History", "history"),
		"Tickets": tickets,
	})
}

// Add POST /add.
func (h *PagesHandler) Add(c *fiber.Ctx) error {
	var form dto.TicketForm
	if err := c.BodyParser(&form); err != nil {
		h.flashes.Error(c, "Invalid form")
		return c.Redirect(back(c))
	}
	if err := h.validator.Validate(form); err != nil {
		h.flashes.Error(c, apperrors.ToDomainError(err).Message)
		return c.Redirect(back(c))
	}

	input := service.TicketCreateInput{
		Title: form.Title,
		Notes: form.Notes,
		Due:   form.DueDate,
		Tags:  form.Tags,
	}
	if p := strings.TrimSpace(form.Priority); p != "" {
		priority, err := strconv.Atoi(p)
		if err != nil {
			h.flashes.Error(c, "Invalid priority value")
			return c.Redirect(back(c))
		}
		input.Priority = &priority
	}

	ticket, err := h.tickets.Create(c.UserContext(), input)
	if err != nil {
		if apperrors.IsValidation(err) {
			h.flashes.Error(c, apperrors.ToDomainError(err).Message)
			return c.Redirect(back(c))
		}
		h.logger.Error("create ticket failed", zap.Error(err))
		h.flashes.Error(c, "Failed to create ticket")
		return c.Redirect(back(c))
	}
	h.flashes.OK(c, "Ticket '"+ticket.Title+"' created")
	return c.Redirect("/today")
}

// Done POST /done/:id.
func (h *PagesHandler) Done(c *fiber.Ctx) error {
	ticket, err := h.tickets.Close(c.UserContext(), c.Params("id"))
	if err != nil {
		if apperrors.IsNotFound(err) {
			h.flashes.Error(c, "Ticket not found")
			return c.Redirect(back(c))
		}
		return err
	}
	h.flashes.OK(c, "'"+ticket.Title+"' marked done")
	return c.Redirect(back(c))
}

// SetTheme GET /theme/:mode.
func (h *PagesHandler) SetTheme(c *fiber.Ctx) error {
	mode := c.Params("mode")
	if mode == "dark" || mode == "light" {
		c.Cookie(&fiber.Cookie{
			Name:     ThemeCookie,
			Value:    mode,
			Path:     "/",
			MaxAge:   themeCookieMaxAge,
			Expires:  time.Now().Add(themeCookieMaxAge * time.Second),
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return c.Redirect(back(c))
}

// back returns the local path of the Referer, or /today.
func back(c *fiber.Ctx) string {
	ref := c.Get(fiber.HeaderReferer)
	if ref == "" {
		return "/today"
	}
	u, err := url.Parse(ref)
	if err != nil || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/today"
	}
	return u.RequestURI()
}
