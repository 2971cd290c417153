package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/cashflow-ai/cashflow/cmd/cashflow/cli"
	"github.com/cashflow-ai/cashflow/internal/app"
	"github.com/cashflow-ai/cashflow/internal/audit"
	audithttp "github.com/cashflow-ai/cashflow/internal/audit/http"
	"github.com/cashflow-ai/cashflow/internal/auth"
	"github.com/cashflow-ai/cashflow/internal/clients"
	"github.com/cashflow-ai/cashflow/internal/dashboard"
	dashboardhttp "github.com/cashflow-ai/cashflow/internal/dashboard/http"
	"github.com/cashflow-ai/cashflow/internal/invoices"
	"github.com/cashflow-ai/cashflow/internal/observability"
	"github.com/cashflow-ai/cashflow/internal/platform/cache"
	"github.com/cashflow-ai/cashflow/internal/platform/db"
	"github.com/cashflow-ai/cashflow/internal/shared"
	"github.com/cashflow-ai/cashflow/jobs"
	"github.com/cashflow-ai/cashflow/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "jobs" {
		if err := runJobsCommand(ctx, cfg, args[1:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}
	if len(args) > 0 && args[0] == "migrate" {
		if err := runMigrate(ctx, cfg, logger); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}
	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("serve", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)

	authService := auth.NewService(auth.NewRepository(dbpool), auth.NewTokenStore(redisClient, cfg.TokenTTL))
	authHandler := auth.NewHandler(logger, authService)

	clientsHandler := clients.NewHandler(logger, clients.NewService(clients.NewRepository(dbpool)))

	invoiceService := invoices.NewService(invoices.NewRepository(dbpool), auditLogger, logger).
		WithReminderInterval(cfg.ReminderIntervalDays)
	invoicesHandler := invoices.NewHandler(logger, invoiceService)

	dashboardService := dashboard.NewService(dashboard.NewRepository(dbpool), logger)
	dashboardHandler := dashboardhttp.NewHandler(logger, dashboardService, cfg.ForecastDefaultDays, cfg.DashboardDefaultLimit)
	activityHandler := audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthHandler:      authHandler,
		ClientsHandler:   clientsHandler,
		InvoicesHandler:  invoicesHandler,
		DashboardHandler: dashboardHandler,
		ActivityHandler:  activityHandler,
		JobHandler:       jobHandler,
		Metrics:          observability.NewMetrics(),
		DB:               dbpool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func runMigrate(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbpool.Close()

	applied, err := db.Migrate(ctx, dbpool, migrations.FS, logger)
	if err != nil {
		return err
	}
	logger.Info("schema up to date", slog.Int("applied", len(applied)))
	return nil
}

func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer jobsCLI.Close()

	usage := fmt.Errorf("usage: cashflow jobs trigger <%s> | cashflow jobs stats", strings.Join(cli.TriggerableJobs(), "|"))
	if len(args) == 0 {
		return usage
	}
	switch args[0] {
	case "trigger":
		if len(args) != 2 {
			return usage
		}
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	default:
		return usage
	}
	return nil
}
