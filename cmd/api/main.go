package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/oakstreet-digital/business-site-backend/internal/api/http"
	"github.com/oakstreet-digital/business-site-backend/internal/api/http/handlers"
	"github.com/oakstreet-digital/business-site-backend/internal/auth"
	"github.com/oakstreet-digital/business-site-backend/internal/config"
	"github.com/oakstreet-digital/business-site-backend/internal/events"
	"github.com/oakstreet-digital/business-site-backend/internal/observability"
	"github.com/oakstreet-digital/business-site-backend/internal/persistence"
	"github.com/oakstreet-digital/business-site-backend/internal/ratelimit"
	"github.com/oakstreet-digital/business-site-backend/internal/repository"
	"github.com/oakstreet-digital/business-site-backend/internal/service"
	"github.com/oakstreet-digital/business-site-backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	contactRepo := repository.NewContactRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, userRepo, logger)
	contactService := service.NewContactService(contactRepo, dispatcher)
	adminService := service.NewAdminService(contactRepo, userRepo, dispatcher)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	if err := authService.Bootstrap(ctx); err != nil {
		logger.Fatal("failed to bootstrap owner account", zap.Error(err))
	}

	authMiddleware := auth.NewMiddleware(authService.TokenManager())
	limiter := ratelimit.New(redis.Client, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window(), logger)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, cfg, logger, metrics)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Contact:        handlers.NewContactHandler(contactService),
		Admin:          handlers.NewAdminHandler(adminService),
		AuthMiddleware: authMiddleware,
		Limiter:        limiter,
		StaticDir:      cfg.App.StaticDir,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
