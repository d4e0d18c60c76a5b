package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/commissiondesk/internal/app"
	"github.com/odyssey-erp/commissiondesk/internal/backend"
	"github.com/odyssey-erp/commissiondesk/internal/deals"
	"github.com/odyssey-erp/commissiondesk/internal/ledger"
	"github.com/odyssey-erp/commissiondesk/internal/observability"
	"github.com/odyssey-erp/commissiondesk/internal/platform/cache"
	"github.com/odyssey-erp/commissiondesk/internal/reports"
	"github.com/odyssey-erp/commissiondesk/internal/shared"
	"github.com/odyssey-erp/commissiondesk/internal/statusdir"
	"github.com/odyssey-erp/commissiondesk/jobs"
)

func main() {
	if app.SkipStartup("commissiond") {
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

	redisClient := cache.Optional(ctx, cfg.RedisAddr, logger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	api := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, backend.WithServiceToken(cfg.BackendServiceToken))
	directories := statusdir.NewCache(api, redisClient, cfg.SessionTTL, logger).WithRecorder(metrics)

	dealService := deals.NewService(api, directories, logger, metrics)
	dealHandler := deals.NewHandler(logger, dealService)

	inflight := shared.NewIdempotencyStore(redisClient, cfg.LedgerInflightTTL)
	ledgerService := ledger.NewService(api, inflight, logger, metrics)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	reportService := reports.NewService(api, reports.NewCache(redisClient, cfg.ReportCacheTTL), cfg.ReportPageSize, logger)

	var (
		enqueuer   reports.Enqueuer
		jobHandler *jobs.Handler
	)
	if redisClient != nil {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		jobClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		enqueuer = jobClient

		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		jobHandler = jobs.NewHandler(nil, logger)
	}
	reportHandler := reports.NewHandler(logger, reportService, enqueuer)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Metrics:        metrics,
		Sessions:       directories,
		DealsHandler:   dealHandler,
		LedgerHandler:  ledgerHandler,
		ReportsHandler: reportHandler,
		JobHandler:     jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", cfg.BackendBaseURL))
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
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
