package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pistigreen/pistigreen-backend/cmd/pistigreen/cli"
	"github.com/pistigreen/pistigreen-backend/internal/account"
	"github.com/pistigreen/pistigreen-backend/internal/app"
	"github.com/pistigreen/pistigreen-backend/internal/auth"
	"github.com/pistigreen/pistigreen-backend/internal/mail"
	"github.com/pistigreen/pistigreen-backend/internal/observability"
	"github.com/pistigreen/pistigreen-backend/internal/platform/cache"
	"github.com/pistigreen/pistigreen-backend/internal/platform/db"
	"github.com/pistigreen/pistigreen-backend/internal/view"
	"github.com/pistigreen/pistigreen-backend/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	inv, err := cli.Parse(os.Args[1:], os.Stderr)
	if err != nil {
		slog.Default().Error("parse arguments", slog.Any("error", err))
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger, inv); err != nil {
		logger.Error("command failed", slog.String("command", inv.Command), slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger, inv cli.Invocation) error {
	switch inv.Command {
	case cli.CommandMigrate:
		if err := db.Migrate(ctx, cfg.PGDSN); err != nil {
			return err
		}
		logger.Info("migrations applied")
		return nil
	case cli.CommandSendTestEmail, cli.CommandQueueStats:
		redisOpts, err := cache.Options(cfg.RedisAddr)
		if err != nil {
			return err
		}
		jobsCLI := cli.NewJobsCLI(cache.QueueOptions(redisOpts))
		defer func() {
			if err := jobsCLI.Close(); err != nil {
				logger.Warn("jobs cli close", slog.Any("error", err))
			}
		}()
		if inv.Command == cli.CommandQueueStats {
			return jobsCLI.QueueStats(os.Stdout)
		}
		return jobsCLI.SendTestEmail(ctx, inv.To)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbpool.Close()

	accountRepo := account.NewRepository(dbpool)

	if inv.Command == cli.CommandActivate {
		return cli.ActivateAccount(ctx, account.NewService(accountRepo, nil, nil, logger), inv.Email, inv.ID, os.Stdout)
	}
	return serve(ctx, cfg, logger, dbpool, accountRepo)
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger, dbpool *pgxpool.Pool, accountRepo account.Repository) error {
	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, cfg.PGDSN); err != nil {
			return err
		}
	}

	redisOpts, err := cache.Options(cfg.RedisAddr)
	if err != nil {
		return err
	}
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	queueOpts := cache.QueueOptions(redisOpts)
	jobClient := jobs.NewClient(queueOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	metrics := observability.NewMetrics()

	notifier := mail.NewActivationNotifier(cfg.WebsiteURL, templates, jobClient)
	accountService := account.NewService(accountRepo, notifier, metrics, logger)
	accountHandler := account.NewHandler(logger, accountService)

	tokens := auth.NewTokenManager(auth.TokenConfig{
		Secret:          []byte(cfg.SecretKey),
		AccessLifetime:  cfg.AccessTokenLifetime.Duration(),
		RefreshLifetime: cfg.RefreshTokenLifetime.Duration(),
		RotateRefresh:   cfg.RotateRefreshTokens,
	})
	blacklist := auth.NewRedisBlacklist(redisClient, "pistigreen")
	authService := auth.NewService(accountRepo, tokens, blacklist)
	authHandler := auth.NewHandler(logger, authService)

	inspector := asynq.NewInspector(queueOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AccountHandler: accountHandler,
		AuthHandler:    authHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}
