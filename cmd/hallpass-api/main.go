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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/hallpasshq/hallpass-api/api/swagger"
	"github.com/hallpasshq/hallpass-api/internal/handler"
	"github.com/hallpasshq/hallpass-api/internal/middleware"
	"github.com/hallpasshq/hallpass-api/internal/repository"
	"github.com/hallpasshq/hallpass-api/internal/service"
	"github.com/hallpasshq/hallpass-api/pkg/cache"
	"github.com/hallpasshq/hallpass-api/pkg/config"
	"github.com/hallpasshq/hallpass-api/pkg/database"
	"github.com/hallpasshq/hallpass-api/pkg/logger"
	corsmiddleware "github.com/hallpasshq/hallpass-api/pkg/middleware/cors"
	reqidmiddleware "github.com/hallpasshq/hallpass-api/pkg/middleware/requestid"
)

// @title Hall Pass API
// @version 1.0.0
// @description Multi-tenant hall pass admission and scheduling engine
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The engine works without Redis; status payloads are simply rebuilt
		// on every poll.
		logr.Warn("redis unavailable, status caching disabled", zap.Error(err))
		redisClient = nil
	}

	tenantRepo := repository.NewTenantRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	queueRepo := repository.NewQueueRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(tenantRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	scheduleSvc := service.NewScheduleService(scheduleRepo, tenantRepo, nil, logr)
	statusSvc := service.NewStatusService(tenantRepo, sessionRepo, queueRepo, rosterRepo,
		scheduleSvc, cacheRepo, metricsSvc, logr, cfg.Kiosk.StatusCacheTTL)
	scheduleSvc.SetStatusInvalidator(statusSvc)
	settingsSvc := service.NewSettingsService(tenantRepo, statusSvc, metricsSvc, logr)
	admissionSvc := service.NewAdmissionService(sessionRepo, queueRepo, rosterRepo,
		settingsSvc, scheduleSvc, statusSvc, metricsSvc, logr)
	queueSvc := service.NewQueueService(queueRepo, statusSvc, logr)
	sessionSvc := service.NewSessionService(sessionRepo, rosterRepo, settingsSvc, admissionSvc, statusSvc, logr)
	rosterSvc := service.NewRosterService(rosterRepo, statusSvc, logr)
	statsSvc := service.NewStatsService(tenantRepo, sessionRepo, queueRepo, rosterRepo, settingsSvc, logr)
	overdueSvc := service.NewOverdueService(sessionRepo, rosterRepo, tenantRepo, settingsSvc,
		statusSvc, metricsSvc, logr, service.OverdueConfig{
			Enabled:       cfg.Monitor.Enabled,
			SweepInterval: cfg.Monitor.SweepInterval,
			Workers:       cfg.Monitor.Workers,
			MaxRetries:    cfg.Monitor.MaxRetries,
		})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(r, cfg.APIPrefix, handler.Deps{
		Auth:      handler.NewAuthHandler(authSvc),
		Scan:      handler.NewScanHandler(admissionSvc, statusSvc),
		Queue:     handler.NewQueueHandler(queueSvc),
		Schedule:  handler.NewScheduleHandler(scheduleSvc),
		Session:   handler.NewSessionHandler(sessionSvc),
		Settings:  handler.NewSettingsHandler(settingsSvc),
		Roster:    handler.NewRosterHandler(rosterSvc),
		Stats:     handler.NewStatsHandler(statsSvc, overdueSvc),
		AuthSvc:   authSvc,
		Metrics:   metricsSvc,
		KioskRepo: tenantRepo,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	overdueSvc.Start(ctx)
	defer overdueSvc.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
