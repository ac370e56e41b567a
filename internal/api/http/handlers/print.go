package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/tickets/internal/api/dto"
	"github.com/spec-kit/tickets/internal/flash"
	"github.com/spec-kit/tickets/internal/service"
	apperrors "github.com/spec-kit/tickets/pkg/util/errorutil"
)

// PrintHandler sends tickets and sheets to the printer from the UI.
type PrintHandler struct {
	printing  *service.PrintService
	tickets   *service.TicketService
	flashes   *flash.Manager
	validator *dto.Validator
	logger    *zap.Logger
}

// NewPrintHandler constructs handler.
func NewPrintHandler(printing *service.PrintService, tickets *service.TicketService, flashes *flash.Manager, validator *dto.Validator, logger *zap.Logger) *PrintHandler {
	return &PrintHandler{printing: printing, tickets: tickets, flashes: flashes, validator: validator, logger: logger}
}

// Test GET /print/test.
func (h *PrintHandler) Test(c *fiber.Ctx) error {
	if err := h.printing.PrintTest(c.UserContext()); err != nil {
		return err
	}
	return c.SendString("OK")
}

// Ticket POST /print/ticket/:id.
func (h *PrintHandler) Ticket(c *fiber.Ctx) error {
	if err := h.printing.PrintTicket(c.UserContext(), c.Params("id")); err != nil {
		if apperrors.IsNotFound(err) {
			h.flashes.Error(c, "Ticket not found")
			return c.Redirect("/today")
		}
		return err
	}
	h.flashes.OK(c, "Ticket printed")
	return c.Redirect("/today")
}

// Weekly POST /print/weekly.
func (h *PrintHandler) Weekly(c *fiber.Ctx) error {
	if err := h.printing.PrintWeek(c.UserContext(), h.tickets.Now()); err != nil {
		return err
	}
	h.flashes.OK(c, "Week printed")
	return c.Redirect("/weekly")
}

// Today POST /print/today.
func (h *PrintHandler) Today(c *fiber.Ctx) error {
	if err := h.printing.PrintToday(c.UserContext(), h.tickets.Now()); err != nil {
		return err
	}
	h.flashes.OK(c, "Today sheet printed")
	return c.Redirect("/today")
}

// Free POST /print/free.
func (h *PrintHandler) Free(c *fiber.Ctx) error {
	var form dto.FreeTextForm
	if err := c.BodyParser(&form); err != nil {
		h.flashes.Error(c, "Invalid form")
		return c.Redirect(back(c))
	}
	if err := h.validator.Validate(form); err != nil {
		h.flashes.Error(c, apperrors.ToDomainError(err).Message)
		return c.Redirect(back(c))
	}
	if err := h.printing.PrintFree(c.UserContext(), form.Text); err != nil {
		if apperrors.IsValidation(err) {
			h.flashes.Error(c, "Please enter text to print")
			return c.Redirect(back(c))
		}
		h.logger.Error("print free text failed", zap.Error(err))
		h.flashes.Error(c, "Failed to print text")
		return c.Redirect(back(c))
	}
	h.flashes.OK(c, "Text printed")
	return c.Redirect(back(c))
}
