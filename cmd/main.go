package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echojwt "github.com/labstack/echo-jwt/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"reliefledger/internal/analytics"
	"reliefledger/internal/caching"
	"reliefledger/internal/config"
	"reliefledger/internal/handlers"
	"reliefledger/internal/jobs"
	"reliefledger/internal/jobs/background"
	"reliefledger/internal/middleware"
	"reliefledger/internal/models"
	"reliefledger/internal/repositories"
	"reliefledger/internal/services"
	"reliefledger/pkg/database"
	"reliefledger/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Env: "production"}).Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ledger store
	var store repositories.LedgerStore
	switch cfg.Ledger.Store {
	case "memory":
		log.Warn().Msg("using in-memory ledger store; data is lost on restart")
		store = repositories.NewMemoryStore()
	default:
		dsn := cfg.DB.ConnectionString()
		if cfg.DB.AutoMigrate {
			if err := database.RunMigrations(ctx, dsn, "up"); err != nil {
				log.Fatal().Err(err).Msg("failed to run migrations")
			}
		}
		pool, err := database.NewPool(ctx, dsn, cfg.DB.MaxConns)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		store = repositories.NewPgLedgerStore(pool)
	}

	// Cache
	cacheSvc := caching.NewNoopCacheService()
	if cfg.Redis.Addr != "" {
		cacheSvc = caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log.Named("cache"))
	}

	// Object storage for exports
	var reportStorage services.ReportStorage
	if cfg.Minio.Endpoint != "" {
		reportStorage, err = services.NewMinioReportStorage(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize object storage")
		}
		if err := reportStorage.EnsureBucket(ctx); err != nil {
			log.Warn().Err(err).Str("bucket", cfg.Minio.Bucket).Msg("could not ensure export bucket")
		}
	}

	// Services
	opts := services.LedgerOptions{
		MaxRetries:   cfg.Ledger.MaxRetries,
		RetryBackoff: cfg.Ledger.RetryBackoff,
		CacheTTL:     cfg.Redis.TTL,
	}
	ledgerLog := log.Named("ledger")
	ledgerSvc := services.NewLedgerService(store, cacheSvc, ledgerLog, opts)
	requestSvc := services.NewStockRequestService(store, cacheSvc, ledgerLog, opts)
	querySvc := services.NewStockQueryService(store, cacheSvc, ledgerLog, opts)
	shelterSvc := services.NewShelterService(store.Shelters())
	analyticsSvc := analytics.NewAnalyticsService(store, cacheSvc, log.Named("analytics"), cfg.Redis.TTL)

	// Background jobs
	jobsLog := log.Named("jobs")
	exporter := jobs.NewMovementExporter(store.Movements(), reportStorage, cfg.Jobs.ExportInterval, jobsLog)
	var scheduler *background.JobScheduler
	if cfg.Jobs.Enabled {
		scheduler, err = background.NewJobScheduler(
			background.Intervals{
				Alerts:      cfg.Jobs.AlertsInterval,
				Consistency: cfg.Jobs.ConsistencyInterval,
				Export:      cfg.Jobs.ExportInterval,
				Analytics:   cfg.Jobs.AnalyticsInterval,
			},
			jobs.NewStockAlertService(store.Stock(), jobsLog),
			jobs.NewConsistencyChecker(store.Stock(), store.Movements(), jobsLog),
			exporter,
			jobs.NewAnalyticsRefreshService(analyticsSvc, jobsLog),
			jobsLog,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create job scheduler")
		}
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start job scheduler")
		}
		defer func() {
			if err := scheduler.Stop(); err != nil {
				log.Error().Err(err).Msg("job scheduler shutdown failed")
			}
		}()
	}

	// JWT configuration
	jwtSecret := cfg.JWT.Secret
	if jwtSecret == "" && cfg.JWT.JWKSURL == "" {
		jwtSecret = random.String(32)
		log.Warn().Msg("JWT_SECRET not set; using a generated secret, issued tokens will not survive a restart")
	}
	jwtConfig, closeJWKS, err := middleware.NewJWTConfig(middleware.JWTOptions{
		Secret:  jwtSecret,
		JWKSURL: cfg.JWT.JWKSURL,
		Issuer:  cfg.JWT.Issuer,
	}, log.Named("auth"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure authentication")
	}
	defer closeJWKS()

	// Handlers
	healthHandlers := handlers.NewHealthHandlers(store, cacheSvc, reportStorage, version)
	stockHandlers := handlers.NewStockHandlers(ledgerSvc, querySvc)
	movementHandlers := handlers.NewMovementHandlers(querySvc)
	requestHandlers := handlers.NewRequestHandlers(requestSvc)
	shelterHandlers := handlers.NewShelterHandlers(shelterSvc)
	analyticsHandlers := handlers.NewAnalyticsHandlers(analyticsSvc)
	jobHandlers := handlers.NewJobHandlers(scheduler, exporter, reportStorage)
	reportHandlers := handlers.NewReportHandlers(store.Stock())

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.RequestLogger(log.Named("http")))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.ContextTimeoutWithConfig(echoMiddleware.ContextTimeoutConfig{Timeout: cfg.HTTP.RequestTimeout}))

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)

	// API routes
	v1 := e.Group("/v1")
	v1.Use(echojwt.WithConfig(jwtConfig))
	v1.Use(middleware.CallerFromToken(cfg.JWT.Issuer))

	adminOnly := middleware.RequireRole(models.RoleAdmin)

	v1.GET("/stock", stockHandlers.ListStock)
	v1.POST("/stock", stockHandlers.CreateStock, adminOnly)
	v1.GET("/stock/:id", stockHandlers.GetStock)
	v1.PATCH("/stock/:id/active", stockHandlers.SetStockActive, adminOnly)
	v1.POST("/stock/:id/receive", stockHandlers.Receive)
	v1.POST("/stock/:id/dispense", stockHandlers.Dispense)
	v1.POST("/stock/:id/transfer", stockHandlers.Transfer, adminOnly)
	v1.POST("/stock/:id/adjust", stockHandlers.Adjust, adminOnly)

	v1.GET("/movements", movementHandlers.ListMovements)

	v1.POST("/requests", requestHandlers.CreateRequest)
	v1.GET("/requests", requestHandlers.ListRequests)
	v1.GET("/requests/:id", requestHandlers.GetRequest)
	v1.POST("/requests/:id/approve", requestHandlers.ApproveRequest, adminOnly)
	v1.POST("/requests/:id/reject", requestHandlers.RejectRequest, adminOnly)
	v1.PATCH("/requests/:id/delivery", requestHandlers.UpdateDelivery)

	v1.GET("/shelters", shelterHandlers.ListShelters)
	v1.POST("/shelters", shelterHandlers.CreateShelter, adminOnly)
	v1.GET("/shelters/:id", shelterHandlers.GetShelter)
	v1.PUT("/shelters/:id", shelterHandlers.UpdateShelter, adminOnly)

	v1.GET("/analytics/dashboard", analyticsHandlers.Dashboard)
	v1.GET("/analytics/categories", analyticsHandlers.Categories)
	v1.GET("/analytics/alerts", analyticsHandlers.Alerts)
	v1.GET("/analytics/turnover", analyticsHandlers.Turnover, adminOnly)

	v1.GET("/jobs", jobHandlers.GetJobStatus, adminOnly)
	v1.GET("/exports/movements", jobHandlers.ExportMovements, adminOnly)
	v1.GET("/reports/stock.pdf", reportHandlers.StockReportPDF, adminOnly)

	// Start server
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr()).Str("version", version).Str("store", cfg.Ledger.Store).Msg("relief ledger server starting")
		if err := e.Start(cfg.HTTP.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
