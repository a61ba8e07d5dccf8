package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/app"
	jobmetrics "github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/jobs"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/platform/db"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/sales/orders"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	idempotencyStore := shared.NewIdempotencyStore(pool)
	ordersRepo := orders.NewRepository(pool)

	metrics := jobmetrics.NewMetrics(nil)
	tracked := func(name string, h asynq.HandlerFunc) asynq.HandlerFunc {
		return func(ctx context.Context, t *asynq.Task) error {
			return metrics.Track(name).End(h(ctx, t))
		}
	}

	cleanupTask, err := jobs.NewIdempotencyCleanupTask(int(cfg.IdempotencyKeyTTL.Hours()))
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}
	staleTask, err := jobs.NewStaleReservationScanTask(int(cfg.StaleReservationAge.Hours()))
	if err != nil {
		logger.Error("build stale reservation task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskIdempotencyCleanup, Handler: tracked("idempotency_cleanup", jobs.NewIdempotencyCleanupHandler(idempotencyStore, logger))},
			{Type: jobs.TaskStaleReservationScan, Handler: tracked("stale_reservation_scan", jobs.NewStaleReservationScanHandler(ordersRepo, logger))},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 * * * *", Task: staleTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
			if err := http.ListenAndServe(cfg.WorkerMetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
