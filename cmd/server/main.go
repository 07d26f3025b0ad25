package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/aloha-admin/internal/auth"
	"github.com/iliyamo/aloha-admin/internal/config"
	"github.com/iliyamo/aloha-admin/internal/database"
	"github.com/iliyamo/aloha-admin/internal/handler"
	"github.com/iliyamo/aloha-admin/internal/middleware"
	"github.com/iliyamo/aloha-admin/internal/obs"
	"github.com/iliyamo/aloha-admin/internal/queue"
	"github.com/iliyamo/aloha-admin/internal/repository"
	"github.com/iliyamo/aloha-admin/internal/revocation"
	"github.com/iliyamo/aloha-admin/internal/router"
	"github.com/iliyamo/aloha-admin/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := obs.NewLogger(obs.LogConfig{Level: cfg.LogLevel, Pretty: cfg.LogPretty, App: "aloha-admin", Env: cfg.Env})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err := database.EnsureSchema(ctx, db); err != nil {
		return err
	}

	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		// The revocation list applies its availability policy per call.
		logger.Warn("redis unreachable at startup", zap.Error(err), zap.Bool("fail_open", cfg.Revocation.FailOpen))
	}
	defer func() { _ = rdb.Close() }()

	metrics := obs.NewMetrics()
	codec, err := auth.NewCodec([]byte(cfg.JWTSecret), auth.CodecOptions{AccessTTL: cfg.AccessTTL, RefreshTTL: cfg.RefreshTTL})
	if err != nil {
		return err
	}
	var store revocation.Store = revocation.NewRedisStore(rdb, cfg.Revocation.Prefix, nil)
	if cfg.Revocation.Backend == "mysql" {
		repo := repository.NewRevokedTokenRepo(db, nil)
		go purgeRevoked(ctx, repo, logger)
		store = repo
	}
	revoked := revocation.NewList(
		store,
		revocation.Options{Enabled: cfg.Revocation.Enabled, FailOpen: cfg.Revocation.FailOpen, Logger: logger, Metrics: metrics},
	)

	var events queue.Publisher = queue.Noop{}
	if cfg.Events.Enabled {
		events = queue.NewAMQPPublisher(cfg.Events.URL, logger)
		if cfg.Events.ConsumeAudit {
			consumer := queue.NewConsumer(cfg.Events.URL, cfg.Events.AuditLogPath, logger)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("audit consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	users := repository.NewUserRepo(db)
	hasher := auth.NewHasher(cfg.BcryptCost)
	sessions, err := service.NewSessionService(users, codec, revoked, service.SessionOptions{
		Hasher:               hasher,
		LogoutRevokesRefresh: cfg.Revocation.LogoutRevokesRefresh,
		Events:               events,
		Logger:               logger,
		Metrics:              metrics,
	})
	if err != nil {
		return err
	}
	profiles := service.NewUserService(users, service.UserOptions{Hasher: hasher, Events: events, Logger: logger, Metrics: metrics})

	e := router.New(router.Deps{
		Auth:    handler.NewAuthHandler(sessions),
		Profile: handler.NewProfileHandler(profiles),
		Admin:   handler.NewAdminHandler(profiles),
		Health: &handler.HealthHandler{
			Required: map[string]handler.Pinger{"mysql": db},
			Optional: map[string]handler.Pinger{"redis": handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })},
		},
		Authenticator: middleware.NewAuthenticator(codec, revoked, metrics),
		Redis:         rdb,
		RateLimit:     config.LoadRateLimitConfig(),
		Cache:         config.LoadCacheConfig(),
		Metrics:       metrics,
		Logger:        logger,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
			zap.Bool("revocation", revoked.Enabled()), zap.Bool("events", cfg.Events.Enabled))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// purgeRevoked drops rows for tokens that have expired on their own.
func purgeRevoked(ctx context.Context, repo *repository.RevokedTokenRepo, logger *zap.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.Purge(ctx)
			if err != nil {
				logger.Warn("purge revoked tokens", zap.Error(err))
				continue
			}
			logger.Debug("purged revoked tokens", zap.Int64("rows", n))
		}
	}
}
