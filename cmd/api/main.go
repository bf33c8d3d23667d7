package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/GeneralMarshal/postgres-auth/internal/api/http"
	"github.com/GeneralMarshal/postgres-auth/internal/api/http/handlers"
	"github.com/GeneralMarshal/postgres-auth/internal/auth"
	"github.com/GeneralMarshal/postgres-auth/internal/config"
	"github.com/GeneralMarshal/postgres-auth/internal/events"
	"github.com/GeneralMarshal/postgres-auth/internal/observability"
	"github.com/GeneralMarshal/postgres-auth/internal/persistence"
	"github.com/GeneralMarshal/postgres-auth/internal/repository"
	"github.com/GeneralMarshal/postgres-auth/internal/service"
	"github.com/GeneralMarshal/postgres-auth/internal/session"
	"github.com/GeneralMarshal/postgres-auth/internal/worker"
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

	userRepo := repository.NewUserRepository(pg.PoolHandle())
	sessions := session.NewManager(redis.Client, cfg.Session.KeyPrefix, cfg.Session.TTL())
	dispatcher := events.NewInMemoryDispatcher()

	authService, err := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   userRepo,
		Sessions:   sessions,
		Dispatcher: dispatcher,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}

	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	metrics := observability.NewMetrics()
	authMiddleware := auth.NewMiddleware(authService.TokenManager(), sessions, logger, metrics)
	if cfg.Session.Sliding {
		authMiddleware.EnableSlidingExpiration(cfg.Session.TTL())
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userRepo),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = app.ShutdownWithContext(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
