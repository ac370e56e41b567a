package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/tickets/internal/api/dto"
	httptransport "github.com/spec-kit/tickets/internal/api/http"
	"github.com/spec-kit/tickets/internal/api/http/handlers"
	"github.com/spec-kit/tickets/internal/app"
	"github.com/spec-kit/tickets/internal/auth"
	"github.com/spec-kit/tickets/internal/config"
	"github.com/spec-kit/tickets/internal/flash"
	"github.com/spec-kit/tickets/internal/observability"
	"github.com/spec-kit/tickets/internal/persistence"
	"github.com/spec-kit/tickets/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tickets, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Fatal("failed to open ticket store", zap.Error(err))
	}
	defer tickets.Close() //nolint:errcheck

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close() //nolint:errcheck

	var flashStore flash.Store = flash.NewMemoryStore(cfg.Redis.FlashTTL())
	deps := map[string]handlers.Pinger{tickets.StoreName: tickets.Store}
	if redis != nil {
		flashStore = flash.NewRedisStore(redis.Client, cfg.Redis.FlashTTL())
		deps["redis"] = redis
	}
	flashes := flash.NewManager(flashStore, cfg.Redis.FlashTTL(), logger)

	creds, err := auth.NewCredentials(cfg.Auth)
	if err != nil {
		logger.Fatal("failed to prepare credentials", zap.Error(err))
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	validator := dto.NewValidator()

	server := httptransport.NewApp(httptransport.ServerConfig{
		AppName: cfg.App.Name,
		Logger:  logger,
		Metrics: tickets.Metrics,
		Timeout: cfg.App.RequestTimeout(),
		Routes: httptransport.RouteConfig{
			Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps, tickets.Metrics),
			Pages: handlers.NewPagesHandler(handlers.PagesDependencies{
				Tickets:      tickets.Tickets,
				Flashes:      flashes,
				Validator:    validator,
				Logger:       logger,
				DefaultTheme: cfg.Theme.Default,
				DefaultTags:  cfg.Tickets.DefaultTags,
			}),
			Print:          handlers.NewPrintHandler(tickets.Printing, tickets.Tickets, flashes, validator, logger),
			API:            handlers.NewAPIHandler(tickets.Tickets, tickets.Printing, service.NewAuthService(creds, tokens), validator),
			AuthMiddleware: auth.NewAuthMiddleware(creds, tokens),
		},
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := server.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = server.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
