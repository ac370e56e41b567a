package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/tickets/internal/observability"
	"github.com/spec-kit/tickets/internal/web"
)

// ServerConfig bundles what NewApp needs beyond the routes.
type ServerConfig struct {
	AppName string
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Timeout time.Duration
	Routes  RouteConfig
}

// NewApp builds the fiber application with views, middlewares and routes.
func NewApp(cfg ServerConfig) *fiber.App {
	views := web.NewViews()
	if err := views.Load(); err != nil {
		cfg.Logger.Error("load templates", zap.Error(err))
	}
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		Views:                 views,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, cfg.Logger, cfg.Metrics, cfg.Timeout, cfg.Routes.Pages.Theme)
	RegisterRoutes(app, cfg.Routes)
	return app
}
