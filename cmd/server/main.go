package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/stock-ledger/internal/adapter/directory"
	"github.com/rl1809/stock-ledger/internal/adapter/handler"
	"github.com/rl1809/stock-ledger/internal/adapter/storage"
	"github.com/rl1809/stock-ledger/internal/config"
	"github.com/rl1809/stock-ledger/internal/core/service"
	"github.com/rl1809/stock-ledger/internal/port"
	"github.com/rl1809/stock-ledger/internal/scheduler"
	"github.com/rl1809/stock-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(ctx, cfg.Store, baseLogger)
	defer closeStore()

	var guard port.IdempotencyGuard
	var names port.NameCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			baseLogger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()

		redisAdapter := storage.NewRedisAdapter(rdb)
		guard, names = redisAdapter, redisAdapter
		baseLogger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		baseLogger.Warn("redis address missing, idempotency keys and name cache disabled")
	}

	var dir port.Directory
	if cfg.Directory.BaseURL != "" {
		dir = directory.NewClient(cfg.Directory.BaseURL, cfg.Directory.Timeout, names, baseLogger.Named("directory"))
	} else {
		baseLogger.Warn("directory url missing, display names fall back to placeholders")
	}

	opts := service.DefaultOptions()
	opts.ConflictRetries = cfg.Ledger.ConflictRetries

	monitor := service.NewLowStockMonitor(store, baseLogger.Named("svc.lowstock"))
	services := handler.Services{
		Catalog:   service.NewCatalogService(store, opts, baseLogger.Named("svc.catalog")),
		Ledger:    service.NewLedgerService(store, dir, opts, baseLogger.Named("svc.ledger")),
		Transfers: service.NewTransferService(store, opts, baseLogger.Named("svc.transfer")),
		Requests:  service.NewRequestService(store, dir, opts, baseLogger.Named("svc.requests")),
		Monitor:   monitor,
	}

	sched := scheduler.NewScheduler(cfg.Ledger.LowStockCron, monitor, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	grpcServer, healthServer := handler.NewGRPCServer()
	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		baseLogger.Fatal("failed to listen", zap.Error(err))
	}

	go func() {
		baseLogger.Info("gRPC server listening", zap.String("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			baseLogger.Error("gRPC server error", zap.Error(err))
		}
	}()

	httpHandler := handler.NewHTTPHandler(services, guard, baseLogger.Named("handlers"))
	srv := &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      handler.NewRouter(httpHandler, baseLogger.Named("router")),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("HTTP server listening", zap.String("port", cfg.Server.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	healthServer.SetServingStatus(handler.LedgerServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	baseLogger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	baseLogger.Info("gRPC server stopped")
}

func openStore(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (port.Store, func()) {
	if cfg.Driver != config.DriverMySQL {
		log.Info("using in-memory store")
		return storage.NewMemoryStore(), func() {}
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatal("failed to ping mysql", zap.Error(err))
	}

	adapter := storage.NewMySQLAdapter(db)
	if err := adapter.Migrate(ctx); err != nil {
		log.Fatal("failed to migrate mysql", zap.Error(err))
	}
	log.Info("connected to mysql")

	return adapter, func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close mysql", zap.Error(err))
		}
	}
}
