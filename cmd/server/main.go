package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/bcc-marketplace/config"
	"github.com/d60-Lab/bcc-marketplace/internal/api"
	"github.com/d60-Lab/bcc-marketplace/internal/api/handler"
	"github.com/d60-Lab/bcc-marketplace/internal/api/middleware"
	"github.com/d60-Lab/bcc-marketplace/internal/cart"
	"github.com/d60-Lab/bcc-marketplace/internal/catalog"
	"github.com/d60-Lab/bcc-marketplace/internal/repository"
	"github.com/d60-Lab/bcc-marketplace/internal/service"
	"github.com/d60-Lab/bcc-marketplace/pkg/database"
	"github.com/d60-Lab/bcc-marketplace/pkg/logger"
	"github.com/d60-Lab/bcc-marketplace/pkg/tracing"
)

// @title           BCC Kids Marketplace API
// @version         1.0
// @description     Catalog, cart, checkout and order lookup for the BCC Kids ministry store.
// @BasePath        /api/v1
// @securityDefinitions.apikey SessionToken
// @in              header
// @name            X-Session-Token
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding}); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	repo, closeRepo, err := openOrderStore(cfg)
	if err != nil {
		logger.Fatal("failed to open order store", zap.Error(err))
	}
	defer closeRepo()

	orders := service.NewOrderService(repo, service.OrderOptions{
		Prefix:      cfg.Shop.OrderPrefix,
		LeadTime:    time.Duration(cfg.Shop.DeliveryLeadDays) * 24 * time.Hour,
		RecentLimit: cfg.Shop.RecentOrdersLimit,
		Gateway:     &service.SimulatedGateway{Latency: cfg.Shop.PaymentLatency},
	})
	if cfg.Shop.SeedOrders {
		if err := orders.Seed(ctx, service.SeedOrders()); err != nil {
			logger.Fatal("failed to seed orders", zap.Error(err))
		}
	}

	processor := service.NewPaymentProcessor(orders, cfg.Shop.PaymentQueueSize, 0)
	stopPayments := processor.Start(cfg.Shop.PaymentWorkers)

	cat := catalog.Default()
	pricing := cart.NewPricing(cfg.Shop.TaxRate, cfg.Shop.FreeShippingThreshold, cfg.Shop.FlatShipping)
	sessions := service.NewSessionStore(cat, pricing)
	sessions.StartSweeper(ctx, cfg.Session.SweepInterval, cfg.Session.TTL)

	// 闲置超过一个清理周期的客户端限流桶被回收
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	limiter.StartSweeper(ctx, cfg.Session.SweepInterval, cfg.Session.SweepInterval)

	router := api.NewRouter(cfg, api.Deps{
		Handler:  handler.New(cat, orders, service.NewCheckoutService(orders, processor), service.NewSupportService()),
		Sessions: sessions,
		Tokens:   middleware.NewSessionTokens(cfg.Session.Secret, cfg.Session.TTL),
		Limiter:  limiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()
	logger.Info("server started",
		zap.String("address", srv.Addr),
		zap.String("store", cfg.Database.Driver),
		zap.Int("shards", len(cfg.Database.ShardDSNs)),
		zap.Bool("redis", cfg.Redis.Enabled),
	)

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	// 等已排队的收款处理完
	if err := stopPayments(shutdownCtx); err != nil {
		logger.Warn("payment queue not drained", zap.Error(err))
	}
	logger.Info("server exited")
}

// openOrderStore 按配置选择订单存储：内存 / 单库 / 分库，可选 redis 缓存
func openOrderStore(cfg *config.Config) (repository.OrderRepository, func(), error) {
	var (
		repo repository.OrderRepository
		err  error
	)
	switch {
	case cfg.Database.Driver == "memory":
		repo = repository.NewMemoryOrderRepository()
	case len(cfg.Database.ShardDSNs) > 0:
		dbs, oErr := database.InitShards(cfg)
		if oErr != nil {
			return nil, nil, oErr
		}
		sharded, sErr := repository.NewShardedOrderRepository(dbs)
		if sErr != nil {
			return nil, nil, sErr
		}
		if err = sharded.InitSchema(); err != nil {
			_ = sharded.Close()
			return nil, nil, err
		}
		repo = sharded
	default:
		db, oErr := database.InitDB(cfg)
		if oErr != nil {
			return nil, nil, oErr
		}
		single := repository.NewSingleDBOrderRepository(db)
		if err = single.InitSchema(); err != nil {
			_ = single.Close()
			return nil, nil, err
		}
		repo = single
	}

	if !cfg.Redis.Enabled {
		return repo, func() { _ = repo.Close() }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		// 缓存不可用时仍可服务
		logger.Warn("redis unavailable, serving without cache", zap.Error(err))
	}
	cached := repository.NewCachedOrderRepository(repo, client, cfg.Redis.TTL)
	return cached, func() {
		_ = cached.Close()
		_ = client.Close()
	}, nil
}
