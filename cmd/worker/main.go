package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/cashflow-ai/cashflow/internal/app"
	"github.com/cashflow-ai/cashflow/internal/auth"
	"github.com/cashflow-ai/cashflow/internal/dashboard"
	"github.com/cashflow-ai/cashflow/internal/invoices"
	jobmetrics "github.com/cashflow-ai/cashflow/internal/jobs"
	"github.com/cashflow-ai/cashflow/internal/platform/cache"
	"github.com/cashflow-ai/cashflow/internal/platform/db"
	"github.com/cashflow-ai/cashflow/internal/shared"
	"github.com/cashflow-ai/cashflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queue, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	authService := auth.NewService(auth.NewRepository(pool), auth.NewTokenStore(redisClient, cfg.TokenTTL))
	invoiceService := invoices.NewService(invoices.NewRepository(pool), shared.NewAuditLogger(pool), logger).
		WithReminderInterval(cfg.ReminderIntervalDays)
	dashboardService := dashboard.NewService(dashboard.NewRepository(pool), logger)

	emailJob := &jobs.EmailJob{Mailer: jobs.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom), Logger: logger}
	alertJob := jobs.NewAlertScanJob(authService, dashboardService, logger, metrics)
	reminderJob := jobs.NewReminderDispatchJob(jobs.ReminderDispatchConfig{
		Users:    authService,
		Invoices: invoiceService,
		Mail:     queue,
		Keys:     shared.NewIdempotencyStore(pool),
		Logger:   logger,
		Metrics:  metrics,
	})

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: emailJob.Handle},
			{Type: jobs.TaskDashboardAlertScan, Handler: alertJob.Handle},
			{Type: jobs.TaskInvoiceReminderDispatch, Handler: reminderJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.AlertScanCron, Task: jobs.NewAlertScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.ReminderCron, Task: jobs.NewReminderDispatchTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("alert_cron", cfg.AlertScanCron), slog.String("reminder_cron", cfg.ReminderCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
