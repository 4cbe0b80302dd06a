package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/classbridge/reportcard-api/api/swagger"
	"github.com/classbridge/reportcard-api/internal/handler"
	"github.com/classbridge/reportcard-api/internal/middleware"
	"github.com/classbridge/reportcard-api/internal/models"
	"github.com/classbridge/reportcard-api/internal/repository"
	"github.com/classbridge/reportcard-api/internal/service"
	"github.com/classbridge/reportcard-api/pkg/cache"
	"github.com/classbridge/reportcard-api/pkg/config"
	"github.com/classbridge/reportcard-api/pkg/database"
	"github.com/classbridge/reportcard-api/pkg/jobs"
	"github.com/classbridge/reportcard-api/pkg/logger"
	corsmiddleware "github.com/classbridge/reportcard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classbridge/reportcard-api/pkg/middleware/requestid"
	"github.com/classbridge/reportcard-api/pkg/storage"
)

// @title ClassBridge Report Card API
// @version 1.0.0
// @description Multi-tenant report card generation and ranking service
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, report cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	schoolRepo := repository.NewSchoolRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	markRepo := repository.NewMarkRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	scaleRepo := repository.NewGradeScaleRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	userRepo := repository.NewUserRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	// Services.
	metricsSvc := service.NewMetricsService()

	var reportCache *service.ReportCacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		reportCache = service.NewReportCacheService(cacheRepo, cfg.Cache.ReportTTL, cfg.Cache.Enabled, logr)
	}

	reportsSvc := service.NewReportCardService(
		enrollmentRepo, assessmentRepo, markRepo, subjectRepo, scaleRepo, attendanceRepo, studentRepo,
		service.ReportCardConfig{
			TieStrategy:         models.TieStrategy(cfg.Grading.TieStrategy),
			UnmatchedBandPolicy: models.UnmatchedBandPolicy(cfg.Grading.UnmatchedBandPolicy),
		},
		logr,
	)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "classbridge-report-api",
		Audience:           []string{"classbridge"},
	})

	scaleSvc := service.NewGradeScaleService(scaleRepo, validate, logr)
	assessmentSvc := service.NewAssessmentService(assessmentRepo, reportCache, validate, logr)
	markSvc := service.NewMarkService(markRepo, assessmentRepo, reportCache, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, reportCache, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, logr)

	// Export pipeline.
	var exportJobSvc *service.ExportJobService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewDownloadSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(reportsSvc, fileStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, nil, nil)
		worker := service.NewExportWorker(exportJobRepo, exportSvc, metricsSvc, cfg.Exports.WorkerRetries, logr)
		exportQueue = jobs.NewQueue("report-exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportQueue.Start(ctx)
		defer exportQueue.Stop()

		exportJobSvc = service.NewExportJobService(exportJobRepo, exportQueue, exportSvc, logr, service.ExportJobConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	reportHandler := handler.NewReportCardHandler(reportsSvc, reportCache, metricsSvc)
	assessmentHandler := handler.NewAssessmentHandler(assessmentSvc)
	markHandler := handler.NewMarkHandler(markSvc)
	scaleHandler := handler.NewGradeScaleHandler(scaleSvc, reportCache)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, redisClient)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Auth routes are not school scoped; the user record carries its school.
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	// Signed download link needs no JWT; the token itself authorizes.
	if exportJobSvc != nil {
		exportHandler := handler.NewExportHandler(exportJobSvc)
		r.GET("/api/v1/report-exports/download/:token", exportHandler.Download)

		exports := schoolGroup(r, schoolRepo, authSvc)
		exports.POST("/report-exports", middleware.RequireStaff(), exportHandler.Create)
		exports.GET("/report-exports/:id", middleware.RequireStaff(), exportHandler.Status)
	}

	api := schoolGroup(r, schoolRepo, authSvc)
	{
		api.GET("/report-cards/sections/:id", middleware.RequireStaff(), reportHandler.SectionReports)
		api.GET("/report-cards/students/:id", reportHandler.StudentReport)

		api.GET("/assessments", middleware.RequireStaff(), assessmentHandler.List)
		api.POST("/assessments", middleware.RequireRoles(models.RolePrincipal, models.RoleTeacher), assessmentHandler.Create)
		api.PATCH("/assessments/:id/publish", middleware.RequireRoles(models.RolePrincipal, models.RoleTeacher), assessmentHandler.SetPublished)

		api.POST("/marks", middleware.RequireRoles(models.RolePrincipal, models.RoleTeacher), markHandler.Record)
		api.POST("/marks/batch", middleware.RequireRoles(models.RolePrincipal, models.RoleTeacher), markHandler.RecordBatch)

		api.GET("/grade-scale", scaleHandler.Get)
		api.PUT("/grade-scale", middleware.RequireRoles(models.RoleOwner, models.RolePrincipal), scaleHandler.Replace)

		api.GET("/enrollments", middleware.RequireStaff(), enrollmentHandler.List)
		api.POST("/enrollments", middleware.RequireRoles(models.RoleOwner, models.RolePrincipal, models.RoleHR), enrollmentHandler.Enroll)
		api.DELETE("/enrollments/students/:id", middleware.RequireRoles(models.RoleOwner, models.RolePrincipal, models.RoleHR), enrollmentHandler.Withdraw)

		api.POST("/attendance", middleware.RequireRoles(models.RolePrincipal, models.RoleTeacher), attendanceHandler.Record)
		api.GET("/attendance/students/:id", attendanceHandler.StudentSummary)

		api.GET("/students", middleware.RequireStaff(), studentHandler.List)
		api.GET("/students/:id", middleware.RequireStaff(), studentHandler.Get)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}

func schoolGroup(r *gin.Engine, schools *repository.SchoolRepository, authSvc *service.AuthService) *gin.RouterGroup {
	group := r.Group("/:school/api/v1")
	group.Use(middleware.Tenant(schools))
	group.Use(middleware.JWT(authSvc))
	group.Use(middleware.TenantGuard())
	return group
}
