package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/studyshare-auth/internal/api/http"
	"github.com/spec-kit/studyshare-auth/internal/api/http/handlers"
	"github.com/spec-kit/studyshare-auth/internal/auth"
	"github.com/spec-kit/studyshare-auth/internal/config"
	"github.com/spec-kit/studyshare-auth/internal/events"
	"github.com/spec-kit/studyshare-auth/internal/observability"
	"github.com/spec-kit/studyshare-auth/internal/persistence"
	"github.com/spec-kit/studyshare-auth/internal/repository"
	"github.com/spec-kit/studyshare-auth/internal/revocation"
	"github.com/spec-kit/studyshare-auth/internal/service"
	"github.com/spec-kit/studyshare-auth/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var rd *persistence.Redis
	if cfg.Auth.RevocationStore == config.RevocationStoreRedis {
		rd = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer rd.Close()
	}

	metrics := observability.NewMetrics()
	userRepo, err := newUserRepository(cfg.App, pg, logger)
	if err != nil {
		logger.Fatal("credential store unavailable", zap.Error(err))
	}
	ledger, err := newLedger(cfg, pg, rd, logger)
	if err != nil {
		logger.Fatal("revocation store unavailable", zap.Error(err))
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	authService := service.NewAuthService(service.AuthDependencies{
		Users:      userRepo,
		Tokens:     tokens,
		Ledger:     ledger,
		Dispatcher: dispatcher,
		Logger:     logger,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	authenticator := auth.NewAuthenticator(tokens, ledger, userRepo, logger, metrics)

	sweeper := worker.NewRevocationSweeper(ledger, cfg.Auth.SweepInterval(), logger.Named("sweeper"), metrics)
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	if cfg.SweeperActive() {
		sweeper.Start(sweepCtx)
	} else {
		logger.Info("revocation sweeper disabled", zap.String("env", cfg.App.Env))
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), authenticator, httptransport.PublicPrefixes...)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rd, metrics),
		Auth:   handlers.NewAuthHandler(authService, logger),
		Admin:  handlers.NewAdminHandler(sweeper),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	stopSweeper()
	sweeper.Wait()
	if err := app.Shutdown(); err != nil {
		logger.Error("fiber shutdown", zap.Error(err))
	}
}

// newUserRepository keeps credentials in memory only outside production.
func newUserRepository(app config.AppConfig, pg *persistence.Postgres, logger *zap.Logger) (repository.UserRepository, error) {
	if !pg.Configured() {
		if app.Env == config.EnvProduction {
			return nil, fmt.Errorf("POSTGRES_DSN is required when APP_ENV=%s", app.Env)
		}
		logger.Warn("no postgres pool; credentials are kept in memory")
		return repository.NewMemoryUserRepository(), nil
	}
	return repository.NewUserRepository(pg.PoolHandle()), nil
}

// newLedger selects the revocation backend. A shared backend without a
// connection falls back to process-local memory, which is only correct for one
// instance, so production refuses the fallback.
func newLedger(cfg *config.Config, pg *persistence.Postgres, rd *persistence.Redis, logger *zap.Logger) (revocation.Ledger, error) {
	store := cfg.Auth.RevocationStore
	switch store {
	case config.RevocationStoreRedis:
		if rd.Configured() {
			logger.Info("revocation ledger backed by redis", zap.String("key", cfg.Auth.RevocationRedisKey))
			return revocation.NewRedisLedger(rd.Client, cfg.Auth.RevocationRedisKey), nil
		}
	case config.RevocationStorePostgres:
		if pg.Configured() {
			logger.Info("revocation ledger backed by postgres")
			return revocation.NewPostgresLedger(pg.PoolHandle()), nil
		}
	case config.RevocationStoreMemory:
		logger.Info("revocation ledger kept in memory")
		return revocation.NewMemoryLedger(), nil
	}

	if cfg.App.Env == config.EnvProduction {
		return nil, fmt.Errorf("revocation store %q has no connection", store)
	}
	logger.Warn("configured revocation store unavailable; falling back to memory", zap.String("store", store))
	return revocation.NewMemoryLedger(), nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
