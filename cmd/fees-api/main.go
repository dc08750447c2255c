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

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	_ "github.com/noah-isme/school-fees-api/api/swagger"
	"github.com/noah-isme/school-fees-api/internal/handler"
	"github.com/noah-isme/school-fees-api/internal/repository"
	"github.com/noah-isme/school-fees-api/internal/router"
	"github.com/noah-isme/school-fees-api/internal/service"
	"github.com/noah-isme/school-fees-api/pkg/cache"
	"github.com/noah-isme/school-fees-api/pkg/config"
	"github.com/noah-isme/school-fees-api/pkg/database"
	"github.com/noah-isme/school-fees-api/pkg/jobs"
	"github.com/noah-isme/school-fees-api/pkg/logger"
	"github.com/noah-isme/school-fees-api/pkg/storage"
)

// @title School Fees API
// @version 1.0.0
// @description Academic years, fee structures, payment schedules and bulk fee assignment for schools.
// @BasePath /api/school
// @schemes http https
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

	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, list cache disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.ListTTL, logr, cfg.Cache.Enabled && redisClient != nil)

	yearRepo := repository.NewAcademicYearRepository(db)
	termRepo := repository.NewTermRepository(db)
	cascadeRepo := repository.NewFeeCascadeRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	categoryRepo := repository.NewFeeCategoryRepository(db)
	structureRepo := repository.NewFeeStructureRepository(db)
	scheduleRepo := repository.NewPaymentScheduleRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	exportRepo := repository.NewExportJobRepository(db)

	authSvc := service.NewAuthService(profileRepo, service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, logr)

	yearSvc := service.NewAcademicYearService(service.AcademicYearServiceParams{
		Years:     yearRepo,
		Terms:     termRepo,
		Cascade:   cascadeRepo,
		Audit:     auditRepo,
		Tx:        db,
		Cache:     cacheSvc,
		CacheTTL:  cfg.Cache.ListTTL,
		Validator: validate,
		Logger:    logr,
	})
	categorySvc := service.NewCategoryService(categoryRepo, validate, logr)
	structureSvc := service.NewStructureService(service.StructureServiceParams{
		Structures:      structureRepo,
		Schedules:       scheduleRepo,
		Categories:      categoryRepo,
		Years:           yearRepo,
		Terms:           termRepo,
		Cascade:         cascadeRepo,
		Audit:           auditRepo,
		Tx:              db,
		Cache:           cacheSvc,
		Validator:       validate,
		Logger:          logr,
		DefaultCurrency: cfg.Fees.DefaultCurrency,
		AmountTolerance: cfg.Fees.AmountTolerance,
	})
	scheduleSvc := service.NewScheduleService(service.ScheduleServiceParams{
		Schedules:  scheduleRepo,
		Structures: structureRepo,
		Years:      yearRepo,
		Terms:      termRepo,
		Audit:      auditRepo,
		Tx:         db,
		Validator:  validate,
		Logger:     logr,
	})
	assignmentSvc := service.NewAssignmentService(service.AssignmentServiceParams{
		Students:     studentRepo,
		Assignments:  assignmentRepo,
		Structures:   structureRepo,
		Schedules:    scheduleRepo,
		Audit:        auditRepo,
		Tx:           db,
		Metrics:      metrics,
		Validator:    validate,
		Logger:       logr,
		PreviewLimit: cfg.Fees.PreviewLimit,
	})
	paymentSvc := service.NewPaymentService(assignmentRepo, paymentRepo, auditRepo, db, metrics, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, logr)

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(exportRepo, yearRepo, store, signer, service.ExportConfig{
		Enabled:         cfg.Exports.Enabled,
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	}, validate, logr)

	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		worker := service.NewExportWorker(exportRepo, assignmentRepo, yearRepo, store, metrics, logr)
		exportQueue = jobs.New("fee-exports", worker.Handle, jobs.Config{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			OnFailure:  worker.Fail,
			Logger:     logr,
		})
		exportQueue.Start(ctx)
		exportSvc.UseQueue(exportQueue)
		exportSvc.RecoverPending(ctx)
		exportSvc.StartCleanup(ctx)
	}

	engine := router.New(router.Deps{Config: cfg, Logger: logr, Metrics: metrics, Auth: authSvc}, router.Handlers{
		AcademicYears: handler.NewAcademicYearHandler(yearSvc),
		Categories:    handler.NewCategoryHandler(categorySvc),
		Structures:    handler.NewStructureHandler(structureSvc),
		Schedules:     handler.NewScheduleHandler(scheduleSvc),
		Assignments:   handler.NewAssignmentHandler(assignmentSvc, paymentSvc),
		Students:      handler.NewStudentHandler(studentSvc),
		Exports:       handler.NewExportHandler(exportSvc),
		Health: handler.NewHealthHandler(metrics,
			handler.HealthCheck{Name: "postgres", Probe: db.PingContext},
			handler.HealthCheck{Name: "redis", Probe: cacheRepo.Ping},
		),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
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
	if exportQueue != nil {
		exportQueue.Stop()
	}
}
