package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appingest "github.com/mpoffice/backend/internal/application/ingest"
	registerapp "github.com/mpoffice/backend/internal/application/register"
	"github.com/mpoffice/backend/internal/domain/ingest"
	"github.com/mpoffice/backend/internal/infrastructure/cache"
	"github.com/mpoffice/backend/internal/infrastructure/config"
	"github.com/mpoffice/backend/internal/infrastructure/connectors"
	"github.com/mpoffice/backend/internal/infrastructure/logger"
	"github.com/mpoffice/backend/internal/infrastructure/persistence"
	"github.com/mpoffice/backend/internal/infrastructure/scheduler"
	"github.com/mpoffice/backend/internal/infrastructure/storage"
	"github.com/mpoffice/backend/internal/interfaces/http/handler"
	"github.com/mpoffice/backend/internal/interfaces/http/middleware"
	"github.com/mpoffice/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting marketplace sales backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level))

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	rawPayloadRepo := persistence.NewGormRawPayloadRepository(db.DB)
	checkpointRepo := persistence.NewGormCheckpointRepository(db.DB)
	failureRepo := persistence.NewGormIngestFailureRepository(db.DB)
	runRepo := persistence.NewGormSyncRunRepository(db.DB)
	registerRepo := persistence.NewGormSalesRegisterRepository(db.DB)

	// Build marketplace connectors from configuration
	conns, err := buildConnectors(cfg)
	if err != nil {
		log.Fatal("Failed to build connectors", zap.Error(err))
	}
	if len(conns) == 0 {
		log.Warn("No marketplace connectors enabled; sync is a no-op")
	}
	for _, c := range conns {
		log.Info("Connector enabled", zap.String("connector", c.Name().String()))
	}

	// Orchestrator options: cross-instance run lock and raw archival
	syncOpts := make([]appingest.SyncServiceOption, 0, 2)

	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		syncOpts = append(syncOpts, appingest.WithRunLocker(cache.NewRedisRunLock(redisClient, cfg.Sync.RunLockTTL)))
		log.Info("Redis run lock enabled", zap.Duration("ttl", cfg.Sync.RunLockTTL))
	} else {
		syncOpts = append(syncOpts, appingest.WithRunLocker(cache.NewLocalRunLock()))
	}

	if cfg.Storage.Enabled {
		archive, err := storage.NewS3PayloadArchive(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize payload archive", zap.Error(err))
		}
		syncOpts = append(syncOpts, appingest.WithArchiver(archive))
		log.Info("Raw payload archival enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	// Initialize application services
	syncConfig := appingest.DefaultSyncConfig()
	syncConfig.FetchRetries = cfg.Sync.FetchRetries
	syncConfig.RetryBaseDelay = cfg.Sync.RetryBaseDelay
	syncConfig.RetryMaxDelay = cfg.Sync.RetryMaxDelay
	syncConfig.FailureReplayLimit = cfg.Sync.FailureReplayLimit

	syncService := appingest.NewSyncService(
		conns,
		rawPayloadRepo,
		checkpointRepo,
		failureRepo,
		runRepo,
		registerRepo,
		syncConfig,
		log,
		syncOpts...,
	)
	queryService := registerapp.NewQueryService(registerRepo, runRepo, log)

	// Initialize sync scheduler
	schedulerConfig := scheduler.DefaultSyncSchedulerConfig()
	schedulerConfig.Enabled = cfg.Sync.SchedulerEnabled
	schedulerConfig.DefaultInterval = cfg.Sync.DefaultInterval
	schedulerConfig.RunTimeout = cfg.Sync.RunTimeout
	schedulerConfig.Intervals = connectorIntervals(cfg)

	syncScheduler, err := scheduler.NewSyncScheduler(schedulerConfig, syncService, log)
	if err != nil {
		log.Fatal("Failed to create sync scheduler", zap.Error(err))
	}
	if cfg.Sync.SchedulerEnabled {
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := syncScheduler.Stop(stopCtx); err != nil {
				log.Error("Error stopping sync scheduler", zap.Error(err))
			}
		}()
		log.Info("Sync scheduler started",
			zap.Duration("default_interval", schedulerConfig.DefaultInterval),
			zap.Duration("run_timeout", schedulerConfig.RunTimeout),
		)
	}

	// Initialize HTTP handlers
	registerHandler := handler.NewRegisterHandler(queryService)
	syncHandler := handler.NewSyncHandler(syncScheduler, queryService, checkpointRepo, failureRepo)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request ID, panic recovery, request logging,
	// security headers, CORS
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS())

	// Health check endpoint (outside API versioning)
	engine.GET("/health", systemHandler.Health)

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(registerHandler).
		Register(syncHandler).
		Register(systemHandler)
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
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

// buildConnectors constructs every enabled marketplace connector.
func buildConnectors(cfg *config.Config) ([]ingest.Connector, error) {
	conns := make([]ingest.Connector, 0, 4)

	if cfg.Connectors.Ozon.FBSEnabled || cfg.Connectors.Ozon.FBOEnabled {
		ozonCfg := &connectors.OzonConfig{
			ClientID: cfg.Connectors.Ozon.ClientID,
			APIKey:   cfg.Connectors.Ozon.APIKey,
			BaseURL:  cfg.Connectors.Ozon.BaseURL,
			PageSize: cfg.Connectors.Ozon.PageSize,
			Overlap:  cfg.Connectors.Ozon.Overlap,
			Lookback: cfg.Connectors.Ozon.Lookback,
		}
		if cfg.Connectors.Ozon.FBSEnabled {
			c, err := connectors.NewOzonConnector(ingest.SourceOzonFBS, ozonCfg)
			if err != nil {
				return nil, err
			}
			conns = append(conns, c)
		}
		if cfg.Connectors.Ozon.FBOEnabled {
			c, err := connectors.NewOzonConnector(ingest.SourceOzonFBO, ozonCfg)
			if err != nil {
				return nil, err
			}
			conns = append(conns, c)
		}
	}

	if cfg.Connectors.Wildberries.Enabled {
		c, err := connectors.NewWildberriesConnector(&connectors.WildberriesConfig{
			APIToken: cfg.Connectors.Wildberries.APIToken,
			BaseURL:  cfg.Connectors.Wildberries.BaseURL,
			Overlap:  cfg.Connectors.Wildberries.Overlap,
			Lookback: cfg.Connectors.Wildberries.Lookback,
		})
		if err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}

	if cfg.Connectors.YandexMarket.Enabled {
		c, err := connectors.NewYandexMarketConnector(&connectors.YandexMarketConfig{
			CampaignID: cfg.Connectors.YandexMarket.CampaignID,
			APIKey:     cfg.Connectors.YandexMarket.APIKey,
			BaseURL:    cfg.Connectors.YandexMarket.BaseURL,
			PageSize:   cfg.Connectors.YandexMarket.PageSize,
			Overlap:    cfg.Connectors.YandexMarket.Overlap,
			Lookback:   cfg.Connectors.YandexMarket.Lookback,
		})
		if err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}

	return conns, nil
}

// connectorIntervals maps per-connector sync intervals from config;
// connectors without an explicit interval use the scheduler default.
func connectorIntervals(cfg *config.Config) map[ingest.Source]time.Duration {
	intervals := make(map[ingest.Source]time.Duration)
	if d := cfg.Connectors.Ozon.Interval; d > 0 {
		intervals[ingest.SourceOzonFBS] = d
		intervals[ingest.SourceOzonFBO] = d
	}
	if d := cfg.Connectors.Wildberries.Interval; d > 0 {
		intervals[ingest.SourceWBSales] = d
	}
	if d := cfg.Connectors.YandexMarket.Interval; d > 0 {
		intervals[ingest.SourceYMOrders] = d
	}
	return intervals
}
