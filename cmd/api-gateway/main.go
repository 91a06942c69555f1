package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sep-portal-api/api/swagger"
	"github.com/noah-isme/sep-portal-api/internal/handler"
	"github.com/noah-isme/sep-portal-api/internal/middleware"
	"github.com/noah-isme/sep-portal-api/internal/repository"
	"github.com/noah-isme/sep-portal-api/internal/service"
	"github.com/noah-isme/sep-portal-api/pkg/cache"
	"github.com/noah-isme/sep-portal-api/pkg/config"
	"github.com/noah-isme/sep-portal-api/pkg/database"
	"github.com/noah-isme/sep-portal-api/pkg/directory"
	"github.com/noah-isme/sep-portal-api/pkg/jobs"
	"github.com/noah-isme/sep-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sep-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sep-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/sep-portal-api/pkg/realtime"
	"github.com/noah-isme/sep-portal-api/pkg/scheduler"
	"github.com/noah-isme/sep-portal-api/pkg/storage"
)

// @title Self-Employment Portal API
// @version 1.0.0
// @description Registration, approval and reporting backend for the self-employment portal
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Categories.CacheTTL, logr, redisClient != nil)

	adminRepo := repository.NewAdminUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	panchayathRepo := repository.NewPanchayathRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	cashRepo := repository.NewCashRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	utilityRepo := repository.NewUtilityRepository(db)
	exportJobRepo := repository.NewExportJobRepository(cacheRepo, cfg.Reports.SignedURLTTL)

	var (
		hub    *realtime.Hub
		events service.EventPublisher
	)
	if cfg.Realtime.Enabled {
		hub = realtime.NewHub(logr.Named("realtime"))
		go hub.Run()
		defer hub.Stop()
		events = hub
		metrics.TrackRealtimeClients(hub.Clients)
	}

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		return err
	}
	exportFiles, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}

	authSvc := service.NewAuthService(adminRepo, cacheSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		Issuer:             "sep-portal-api",
		BootstrapAdmin:     cfg.Auth.BootstrapAdmin,
		PermissionCacheTTL: cfg.Auth.PermissionCacheTTL,
	})
	adminUserSvc := service.NewAdminUserService(adminRepo, authSvc, cfg.Auth.BootstrapAdmin, validate, logr)
	categorySvc := service.NewCategoryService(categoryRepo, cacheSvc, objects, validate, logr, service.CategoryServiceConfig{
		CacheTTL:      cfg.Categories.CacheTTL,
		QRMaxFileSize: cfg.Storage.QRMaxFileSize,
	})
	panchayathSvc := service.NewPanchayathService(panchayathRepo, validate, logr)
	registrationSvc := service.NewRegistrationService(registrationRepo, categoryRepo, transferRepo, events, validate, logr,
		service.WithRegistrationMetrics(metrics))
	transferSvc := service.NewTransferService(transferRepo, registrationRepo, categoryRepo, events, metrics, validate, logr)
	cashSvc := service.NewCashService(cashRepo, verificationRepo, validate, logr)
	verificationSvc := service.NewVerificationService(verificationRepo, registrationRepo, cashSvc, events, logr)
	alertSvc := service.NewExpiryAlertService(registrationRepo, events, metrics, logr, cfg.Expiry.AlertWindowDays)
	announcementSvc := service.NewAnnouncementService(announcementRepo, validate, logr)
	utilitySvc := service.NewUtilityService(utilityRepo, validate, logr)
	directorySvc := service.NewDirectoryService(directory.NewClient(cfg.Directory.BaseURL, cfg.Directory.APIKey, cfg.Directory.Timeout), logr)

	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(registrationRepo, exportFiles, signer, service.ExportConfig{
		APIPrefix:       cfg.PublicBaseURL + cfg.APIPrefix,
		ResultTTL:       cfg.Reports.SignedURLTTL,
		AlertWindowDays: cfg.Expiry.AlertWindowDays,
	}, logr)
	worker := service.NewReportWorker(exportJobRepo, exportSvc, metrics, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr.Named("jobs"),
	})
	queue.Start(ctx)
	defer queue.Stop()
	reportSvc := service.NewReportService(registrationRepo, verificationRepo, exportJobRepo, queue, exportSvc, metrics, logr)

	sched := scheduler.New(logr.Named("scheduler"))
	if cfg.Expiry.RefreshEnabled {
		if err := sched.Register("expiry-refresh", cfg.Expiry.RefreshSpec, alertSvc.Run); err != nil {
			return err
		}
		go sched.RunNow("expiry-refresh", alertSvc.Run)
	}
	if err := sched.Register("export-cleanup", cfg.Reports.CleanupSpec, reportSvc.Cleanup); err != nil {
		return err
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		sched.Stop(stopCtx)
	}()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/health", "/ready", "/metrics"))

	metricsHandler := handler.NewMetricsHandler(metrics, readinessChecks(db, cacheRepo))
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if cfg.Storage.Driver != config.StorageDriverS3 {
		r.Static(cfg.Storage.PublicURLPrefix, cfg.Storage.LocalDir)
	}

	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Registrations: handler.NewRegistrationHandler(registrationSvc),
		Transfers:     handler.NewTransferHandler(transferSvc),
		Verifications: handler.NewVerificationHandler(verificationSvc),
		Alerts:        handler.NewAlertHandler(alertSvc),
		Reports:       handler.NewReportHandler(reportSvc),
		Categories:    handler.NewCategoryHandler(categorySvc, cfg.Storage.QRMaxFileSize),
		Panchayaths:   handler.NewPanchayathHandler(panchayathSvc),
		Content:       handler.NewContentHandler(announcementSvc, utilitySvc),
		Cash:          handler.NewCashHandler(cashSvc),
		AdminUsers:    handler.NewAdminUserHandler(adminUserSvc),
		Directory:     handler.NewDirectoryHandler(directorySvc),
	}
	if hub != nil {
		handlers.Realtime = handler.NewRealtimeHandler(hub, cfg.CORS.AllowedOrigins, logr)
	}
	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.Storage.Driver == config.StorageDriverS3 {
		s3Store, err := storage.NewS3Storage(ctx, storage.S3Options{
			Region:          cfg.Storage.S3Region,
			Bucket:          cfg.Storage.S3Bucket,
			AccessKeyID:     cfg.Storage.S3AccessKeyID,
			SecretAccessKey: cfg.Storage.S3SecretKey,
			BaseURL:         cfg.Storage.S3BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		return s3Store, nil
	}
	files, err := storage.NewLocalStorage(cfg.Storage.LocalDir)
	if err != nil {
		return nil, fmt.Errorf("init local storage: %w", err)
	}
	return storage.NewLocalObjectStore(files, cfg.PublicBaseURL+cfg.Storage.PublicURLPrefix), nil
}

func readinessChecks(db *sqlx.DB, cacheRepo *repository.CacheRepository) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if cacheRepo.Enabled() {
		checks["redis"] = cacheRepo.Ping
	}
	return checks
}
