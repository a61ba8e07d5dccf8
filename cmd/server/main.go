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
	"golang.org/x/sync/errgroup"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/app"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/integration"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/inventory"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/masterdata"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/observability"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/platform/cache"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/platform/db"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/sales/customers"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/sales/orders"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/stock"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/transfer"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, cache invalidation disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	sequenceStore := shared.NewSequenceStore(dbpool)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	hooks := integration.NewHooks(logger, jobsClient, redisClient)

	masterRepo := masterdata.NewRepository(dbpool)
	masterService := masterdata.NewService(masterRepo)
	masterHandler := masterdata.NewHandler(logger, masterService)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo)
	inventoryHandler := inventory.NewHandler(inventoryService)

	stockRepo := stock.NewRepository(dbpool)
	stockService := stock.NewService(stockRepo, masterService, inventoryService, sequenceStore, auditLogger, idempotencyStore, hooks)
	stockHandler := stock.NewHandler(logger, stockService)

	transferRepo := transfer.NewRepository(dbpool)
	transferService := transfer.NewService(transferRepo, masterService, sequenceStore, auditLogger, idempotencyStore, hooks)
	transferHandler := transfer.NewHandler(logger, transferService)

	customersRepo := customers.NewRepository(dbpool)
	customersService := customers.NewService(customersRepo)
	customersHandler := customers.NewHandler(logger, customersService)

	ordersRepo := orders.NewRepository(dbpool)
	ordersService := orders.NewService(ordersRepo, customersService, masterService, inventoryService, sequenceStore, auditLogger, idempotencyStore, hooks)
	ordersHandler := orders.NewHandler(logger, ordersService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		InventoryHandler:  inventoryHandler,
		StockHandler:      stockHandler,
		TransferHandler:   transferHandler,
		OrdersHandler:     ordersHandler,
		CustomersHandler:  customersHandler,
		MasterDataHandler: masterHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
