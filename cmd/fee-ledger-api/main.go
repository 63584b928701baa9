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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-fee-ledger/api/swagger"
	"github.com/noah-isme/sma-fee-ledger/internal/events"
	"github.com/noah-isme/sma-fee-ledger/internal/handler"
	"github.com/noah-isme/sma-fee-ledger/internal/middleware"
	"github.com/noah-isme/sma-fee-ledger/internal/models"
	"github.com/noah-isme/sma-fee-ledger/internal/repository"
	"github.com/noah-isme/sma-fee-ledger/internal/service"
	"github.com/noah-isme/sma-fee-ledger/pkg/cache"
	"github.com/noah-isme/sma-fee-ledger/pkg/config"
	"github.com/noah-isme/sma-fee-ledger/pkg/database"
	"github.com/noah-isme/sma-fee-ledger/pkg/export"
	"github.com/noah-isme/sma-fee-ledger/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-fee-ledger/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-fee-ledger/pkg/middleware/requestid"
)

// @title SMA Fee Ledger API
// @version 1.0.0
// @description Fee schedules, student ledgers, payments and waivers
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(ctx, db, logr); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.FeeCache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, fee cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	metrics := service.NewMetricsService()
	router, bus := buildRouter(ctx, cfg, logr, db, redisClient, metrics)

	bus.Start(ctx)
	defer bus.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
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

func buildRouter(ctx context.Context, cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client, metrics *service.MetricsService) (*gin.Engine, *events.Bus) {
	validate := validator.New()

	feeCatalogRepo := repository.NewFeeCatalogRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	waiverRepo := repository.NewWaiverRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.FeeCache.TTL, logr, cfg.FeeCache.Enabled && redisClient != nil)
	ledgerOpts := service.LedgerOptions{
		MaxRetries:       cfg.Ledger.MaxRetries,
		RetryBackoff:     cfg.Ledger.RetryBackoff,
		AllowOverpayment: cfg.Ledger.AllowOverpayment,
	}

	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})
	feeCatalogSvc := service.NewFeeCatalogService(feeCatalogRepo, auditRepo, validate, logr)
	ledgerSvc := service.NewLedgerService(ledgerRepo, feeCatalogRepo, paymentRepo, waiverRepo, auditRepo, cacheSvc, cfg.FeeCache.TTL, metrics, ledgerOpts, validate, logr)
	paymentSvc := service.NewPaymentService(ledgerRepo, paymentRepo, feeCatalogRepo, auditRepo, cacheSvc, metrics, export.NewPDFExporter(), ledgerOpts, validate, logr)
	waiverSvc := service.NewWaiverService(ledgerRepo, waiverRepo, auditRepo, cacheSvc, metrics, ledgerOpts, validate, logr)
	exportSvc := service.NewExportService(ledgerSvc, logr, export.NewCSVExporter(), export.NewPDFExporter(), export.NewXLSXExporter("SMA Fee Ledger"))
	provisioner := service.NewFeeProvisioner(feeCatalogRepo, ledgerRepo, cacheSvc, metrics, logr)

	bus := events.NewBus(events.Config{
		Workers:    cfg.Events.Workers,
		BufferSize: cfg.Events.BufferSize,
		MaxRetries: cfg.Events.MaxRetries,
		RetryDelay: cfg.Events.RetryDelay,
		Logger:     logr,
	}, metrics, provisioner)

	ledgerSvc.StartOverdueSweep(ctx, cfg.Ledger.OverdueSweepInterval)

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	feeCatalogHandler := handler.NewFeeCatalogHandler(feeCatalogSvc)
	ledgerHandler := handler.NewLedgerHandler(ledgerSvc, exportSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	waiverHandler := handler.NewWaiverHandler(waiverSvc)
	eventHandler := handler.NewEnrollmentEventHandler(bus, validate)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	admin := string(models.RoleAdmin)
	teacher := string(models.RoleTeacher)
	self := middleware.RoleSelf

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	catalog := api.Group("/fee-catalog")
	catalog.POST("", middleware.RBAC(admin), feeCatalogHandler.Create)
	catalog.GET("", middleware.RBAC(admin, teacher), feeCatalogHandler.List)
	catalog.GET("/:id", middleware.RBAC(admin, teacher), feeCatalogHandler.Get)
	catalog.PUT("/:id", middleware.RBAC(admin), feeCatalogHandler.Update)
	catalog.PATCH("/:id/active", middleware.RBAC(admin), feeCatalogHandler.SetActive)

	students := api.Group("/students/:studentId/fees")
	students.GET("", middleware.RBAC(admin, teacher, self), ledgerHandler.ListForStudent)
	students.GET("/unpaid", middleware.RBAC(admin, teacher, self), ledgerHandler.Unpaid)
	students.GET("/statement", middleware.RBAC(admin, self), ledgerHandler.Statement)

	fees := api.Group("/fees")
	fees.POST("/reminders", middleware.RBAC(admin), ledgerHandler.SendReminders)
	fees.POST("/refresh-overdue", middleware.RBAC(admin), ledgerHandler.RefreshOverdue)
	fees.GET("/:id", middleware.RBAC(admin, teacher), ledgerHandler.Get)
	fees.POST("/:id/waive", middleware.RBAC(admin), ledgerHandler.Waive)
	fees.POST("/:id/reopen", middleware.RBAC(admin), ledgerHandler.Reopen)
	fees.GET("/:id/payments", middleware.RBAC(admin, teacher), paymentHandler.List)
	fees.POST("/:id/payments", middleware.RBAC(admin), paymentHandler.Record)
	fees.POST("/:id/adjustments", middleware.RBAC(admin), paymentHandler.Adjust)
	fees.GET("/:id/reconcile", middleware.RBAC(admin), paymentHandler.Reconcile)
	fees.GET("/:id/waivers", middleware.RBAC(admin, teacher), waiverHandler.List)
	fees.POST("/:id/waivers", middleware.RBAC(admin), waiverHandler.Grant)

	api.DELETE("/waivers/:id", middleware.RBAC(admin), waiverHandler.Revoke)
	api.GET("/payments/:receipt", middleware.RBAC(admin), paymentHandler.GetByReceipt)
	api.GET("/payments/:receipt/receipt.pdf", middleware.RBAC(admin), paymentHandler.Receipt)
	api.POST("/events/enrollment-activated", middleware.RBAC(admin), eventHandler.Activated)

	return r, bus
}
