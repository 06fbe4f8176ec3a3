package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marketship/backend/internal/application/ordersync"
	"github.com/marketship/backend/internal/application/quote"
	"github.com/marketship/backend/internal/application/resolver"
	"github.com/marketship/backend/internal/infrastructure/cache"
	"github.com/marketship/backend/internal/infrastructure/config"
	"github.com/marketship/backend/internal/infrastructure/courier"
	"github.com/marketship/backend/internal/infrastructure/httpx"
	"github.com/marketship/backend/internal/infrastructure/logger"
	"github.com/marketship/backend/internal/infrastructure/persistence"
	"github.com/marketship/backend/internal/infrastructure/scheduler"
	"github.com/marketship/backend/internal/infrastructure/sellerdir"
	"github.com/marketship/backend/internal/infrastructure/storefront"
	"github.com/marketship/backend/internal/interfaces/http/handler"
	"github.com/marketship/backend/internal/interfaces/http/middleware"
	"github.com/marketship/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting marketship backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.AutoMigrate(); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Persisted stores
	originStore := persistence.NewGormOriginStore(db.DB)
	syncStore := persistence.NewGormSyncStore(db.DB)
	auditStore := persistence.NewGormQuoteAuditStore(db.DB, cfg.Quote.AuditCap)
	credentialStore := persistence.NewGormCredentialStore(db.DB)

	// Quote result cache: Redis when enabled, in-process LRU otherwise
	quoteCache, err := cache.NewQuoteCacheFactory(cfg.Redis, cache.WithLogger(log)).Create()
	if err != nil {
		log.Fatal("Failed to create quote cache", zap.Error(err))
	}

	// Upstream adapters share the resilient client settings
	clientOpts := []httpx.Option{
		httpx.WithTimeout(cfg.Client.Timeout),
		httpx.WithMaxRetries(cfg.Client.MaxRetries),
		httpx.WithBaseDelay(cfg.Client.BaseDelay),
		httpx.WithLogger(log),
	}

	courierAdapter, err := courier.NewAdapter(&courier.Config{
		BaseURL:      cfg.Courier.BaseURL,
		ClientID:     cfg.Courier.ClientID,
		ClientSecret: cfg.Courier.ClientSecret,
	}, credentialStore, clientOpts, courier.WithAdapterLogger(log))
	if err != nil {
		log.Fatal("Failed to create courier adapter", zap.Error(err))
	}

	directoryAdapter, err := sellerdir.NewAdapter(&sellerdir.Config{
		BaseURL: cfg.SellerDirectory.BaseURL,
		APIKey:  cfg.SellerDirectory.APIKey,
	}, clientOpts, sellerdir.WithAdapterLogger(log))
	if err != nil {
		log.Fatal("Failed to create seller-directory adapter", zap.Error(err))
	}

	storefrontAdapter, err := storefront.NewAdapter(&storefront.Config{
		ShopDomain:  cfg.Storefront.ShopDomain,
		AccessToken: cfg.Storefront.AccessToken,
		APIVersion:  cfg.Storefront.APIVersion,
	}, clientOpts, storefront.WithAdapterLogger(log))
	if err != nil {
		log.Fatal("Failed to create storefront adapter", zap.Error(err))
	}

	// Application services
	sellerResolver := resolver.NewResolver(directoryAdapter, originStore, resolver.Config{
		TTL:                 cfg.Quote.ResolveTTL,
		CacheSize:           cfg.Quote.ResolveCacheSize,
		DefaultOriginPostal: cfg.Quote.DefaultOriginPostal,
	}, resolver.WithLogger(log))

	quoteService := quote.NewService(sellerResolver, courierAdapter, quoteCache, auditStore, quote.Config{
		HandlingFee:           cfg.Quote.HandlingFee,
		FreeShippingThreshold: cfg.Quote.FreeShippingThreshold,
		MaxRates:              cfg.Quote.MaxRates,
		Currency:              cfg.Quote.Currency,
		MinorUnitFactor:       cfg.Quote.MinorUnitFactor,
		CacheTTL:              cfg.Quote.CacheTTL,
		Couriers:              cfg.Courier.AllowList,
	}, quote.WithLogger(log))

	planner := ordersync.NewPlanner(sellerResolver, directoryAdapter, courierAdapter,
		cfg.Courier.AllowList, ordersync.WithPlannerLogger(log))
	syncService := ordersync.NewService(storefrontAdapter, courierAdapter, planner, syncStore,
		ordersync.WithLogger(log))

	// Background pending-order sync
	if cfg.Sync.PollEnabled {
		poller := scheduler.NewPoller(syncService, scheduler.PollerConfig{
			Interval: cfg.Sync.PollInterval,
			Batch:    cfg.Sync.PollBatch,
			Options: ordersync.SyncOptions{
				AutoFulfill:    cfg.Sync.AutoFulfill,
				NotifyCustomer: cfg.Sync.NotifyCustomer,
			},
		}, log)
		if err := poller.Start(context.Background()); err != nil {
			log.Fatal("Failed to start order sync poller", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := poller.Stop(ctx); err != nil {
				log.Error("Error stopping order sync poller", zap.Error(err))
			}
		}()
	}

	// HTTP layer
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORS())

	quoteHandler := handler.NewQuoteHandler(quoteService, auditStore, cfg.Quote.FailOpen, log)
	orderHandler := handler.NewOrderHandler(syncService, cfg.Sync, log)
	originHandler := handler.NewOriginHandler(sellerResolver, originStore,
		middleware.WebhookSignature(cfg.HTTP.WebhookSecret), log)
	healthHandler := handler.NewHealthHandler(db, cfg.App.Name, version)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(quoteHandler).
		Register(orderHandler).
		Register(originHandler).
		Register(healthHandler).
		Setup()

	// Unversioned probe aliases for load balancers
	engine.GET("/health", healthHandler.Health)
	engine.GET("/ready", healthHandler.Ready)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
