package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tickets/internal/api/dto"
	"github.com/spec-kit/tickets/internal/service"
	"github.com/spec-kit/tickets/internal/sheet"
	apperrors "github.com/spec-kit/tickets/pkg/util/errorutil"
)

// APIHandler serves the JSON API.
type APIHandler struct {
	tickets   *service.TicketService
	printing  *service.PrintService
	auth      *service.AuthService
	validator *dto.Validator
}

// NewAPIHandler constructs handler.
func NewAPIHandler(tickets *service.TicketService, printing *service.PrintService, auth *service.AuthService, validator *dto.Validator) *APIHandler {
	return &APIHandler{tickets: tickets, printing: printing, auth: auth, validator: validator}
}

// Token POST /api/token.
func (h *APIHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validator.Validate(req); err != nil {
		return err
	}
	token, exp, err := h.auth.IssueToken(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: exp}})
}

// ListTickets GET /api/tickets?view=today|week|month|undated.
func (h *APIHandler) ListTickets(c *fiber.Ctx) error {
	ctx := c.UserContext()
	now := h.tickets.Now()
	switch view := strings.ToLower(c.Query("view")); view {
	case "", "open":
		tickets, err := h.tickets.ListOpen(ctx)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewTicketList(tickets)})
	case "today":
		tickets, err := h.tickets.ListToday(ctx, now)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewTicketList(tickets)})
	case "undated":
		tickets, err := h.tickets.ListUndated(ctx)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewTicketList(tickets)})
	case "week":
		week, err := h.tickets.ListWeek(ctx, now)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewWeekResponse(week)})
	case "month":
		month, err := h.tickets.ListMonth(ctx, now)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewMonthResponse(month)})
	default:
		return apperrors.NewValidationError("unknown view", map[string]any{"view": view})
	}
}

// GetTicket GET /api/tickets/:id.
func (h *APIHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// CreateTicket POST /api/tickets.
func (h *APIHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validator.Validate(req); err != nil {
		return err
	}
	ticket, err := h.tickets.Create(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// CloseTicket POST /api/tickets/:id/close.
func (h *APIHandler) CloseTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.Close(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// History GET /api/history.
func (h *APIHandler) History(c *fiber.Ctx) error {
	tickets, err := h.tickets.ListClosed(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketList(tickets)})
}

// WeekSheet GET /api/sheets/week renders the printable week sheet as text.
func (h *APIHandler) WeekSheet(c *fiber.Ctx) error {
	lines, err := h.printing.WeekSheet(c.UserContext(), h.tickets.Now())
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(sheet.Text(lines))
}

// TodaySheet GET /api/sheets/today renders the daily worksheet as text.
func (h *APIHandler) TodaySheet(c *fiber.Ctx) error {
	lines, err := h.printing.TodaySheet(c.UserContext(), h.tickets.Now())
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(sheet.Text(lines))
}
