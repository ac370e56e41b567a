package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/tickets/internal/observability"
	"github.com/spec-kit/tickets/internal/web"
	apperrors "github.com/spec-kit/tickets/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares. The request logger runs
// outermost so it sees the final status written by the error middleware.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration, theme ThemeResolver) {
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics, theme))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// ThemeResolver picks the UI theme for a request.
type ThemeResolver func(c *fiber.Ctx) string

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics, theme ThemeResolver) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
				}
				c.Status(domainErr.HTTPStatus)
				if isAPIRequest(c) {
					_ = c.JSON(errorBody(domainErr))
				} else {
					_ = renderError(c, domainErr, theme)
				}
				err = nil
			}
		}()
		return c.Next()
	}
}

// ErrorHandler handles errors that escape the middleware chain, such as
// routing misses raised by fiber itself.
func ErrorHandler(c *fiber.Ctx, err error) error {
	domainErr := toDomainError(err)
	if isAPIRequest(c) {
		return c.Status(domainErr.HTTPStatus).JSON(errorBody(domainErr))
	}
	return c.Status(domainErr.HTTPStatus).SendString(domainErr.Message)
}

func toDomainError(err error) *apperrors.DomainError {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := apperrors.CodeInternal
		switch fiberErr.Code {
		case http.StatusNotFound:
			code = apperrors.CodeNotFound
		case http.StatusUnauthorized:
			code = apperrors.CodeUnauthorized
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			code = apperrors.CodeValidation
		}
		return apperrors.NewDomainError(code, fiberErr.Message, fiberErr.Code, nil)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewDomainError(apperrors.CodeInternal, "request timed out", http.StatusGatewayTimeout, nil)
	}
	return apperrors.ToDomainError(err)
}

func errorBody(domainErr *apperrors.DomainError) fiber.Map {
	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	return fiber.Map{"error": body}
}

func renderError(c *fiber.Ctx, domainErr *apperrors.DomainError, theme ThemeResolver) error {
	if domainErr.HTTPStatus == http.StatusUnauthorized {
		return c.SendString("Authentication required")
	}
	page := web.Page{Title: http.StatusText(domainErr.HTTPStatus), Theme: "dark"}
	if theme != nil {
		page.Theme = theme(c)
	}
	if err := c.Render("error", fiber.Map{"Page": page, "Message": domainErr.Message}); err != nil {
		return c.SendString(domainErr.Message)
	}
	return nil
}

func isAPIRequest(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/") || c.Path() == "/api"
}
