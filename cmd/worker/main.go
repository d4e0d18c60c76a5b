package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/commissiondesk/internal/app"
	"github.com/odyssey-erp/commissiondesk/internal/backend"
	"github.com/odyssey-erp/commissiondesk/internal/platform/cache"
	"github.com/odyssey-erp/commissiondesk/internal/reports"
	"github.com/odyssey-erp/commissiondesk/jobs"
)

func main() {
	if app.SkipStartup("worker") {
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
	slog.SetDefault(logger)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	// Scheduled rebuilds run without a viewer, so the backend sees the service token.
	api := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, backend.WithServiceToken(cfg.BackendServiceToken))
	reportService := reports.NewService(api, reports.NewCache(redisClient, cfg.ReportCacheTTL), cfg.ReportPageSize, logger)
	refreshJob := jobs.NewSummaryRefreshJob(reportService, logger, nil)

	refreshTask, err := jobs.NewSummaryRefreshTask("schedule")
	if err != nil {
		logger.Error("build summary refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCommissionSummaryRefresh, Handler: refreshJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReportRefreshCron, Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("refresh_cron", cfg.ReportRefreshCron))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
