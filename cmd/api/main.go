package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/token-service/internal/api/http"
	"github.com/spec-kit/token-service/internal/api/http/handlers"
	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/config"
	"github.com/spec-kit/token-service/internal/events"
	"github.com/spec-kit/token-service/internal/observability"
	"github.com/spec-kit/token-service/internal/persistence"
	"github.com/spec-kit/token-service/internal/repository"
	"github.com/spec-kit/token-service/internal/service"
	"github.com/spec-kit/token-service/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	userRepo := repository.NewUserRepository(pg.Pool)
	settingsRepo := repository.NewSettingsRepository(pg.Pool)
	metadataRepo := repository.NewMetadataRepository(pg.Pool)
	avatarRepo := repository.NewAvatarRepository(pg.Pool)
	revocationRepo := repository.NewCachedRevocationRepository(
		repository.NewRevocationRepository(pg.Pool), redis.Client,
	)

	claimBuilder := auth.NewClaimBuilder(settingsRepo, cfg.App.BaseURL)
	issuer := auth.NewIssuer(claimBuilder, settingsRepo)
	verifier := auth.NewVerifier(settingsRepo, revocationRepo)
	exchanger := auth.NewExchanger(verifier, issuer, revocationRepo)
	revoker := auth.NewRevocationManager(settingsRepo, revocationRepo)

	dispatcher := events.NewInMemoryDispatcher()
	events.RegisterAuditLogger(dispatcher, logger)

	metrics := observability.NewMetrics()

	tokenService := service.NewTokenService(service.TokenDependencies{
		UserRepo:       userRepo,
		RevocationRepo: revocationRepo,
		Issuer:         issuer,
		Exchanger:      exchanger,
		Revoker:        revoker,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:     userRepo,
		MetadataRepo: metadataRepo,
		AvatarRepo:   avatarRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
		BcryptCost:   cfg.Auth.BcryptCost,
	})

	worker.StartCleanupWorker(ctx, tokenService, cfg.Worker.CleanupInterval(), logger)

	authMiddleware := auth.NewMiddleware(verifier, userRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(tokenService),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: authMiddleware,
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
