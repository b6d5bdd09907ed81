package main

import (
	"context"
	"fmt"
	"log"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campus-assist/rostering-api/api/swagger"
	"github.com/campus-assist/rostering-api/internal/clock"
	internalhandler "github.com/campus-assist/rostering-api/internal/handler"
	internaljobs "github.com/campus-assist/rostering-api/internal/jobs"
	internalmiddleware "github.com/campus-assist/rostering-api/internal/middleware"
	"github.com/campus-assist/rostering-api/internal/models"
	"github.com/campus-assist/rostering-api/internal/repository"
	"github.com/campus-assist/rostering-api/internal/service"
	"github.com/campus-assist/rostering-api/pkg/cache"
	"github.com/campus-assist/rostering-api/pkg/config"
	"github.com/campus-assist/rostering-api/pkg/database"
	pkgjobs "github.com/campus-assist/rostering-api/pkg/jobs"
	"github.com/campus-assist/rostering-api/pkg/logger"
	corsmiddleware "github.com/campus-assist/rostering-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-assist/rostering-api/pkg/middleware/requestid"
	"github.com/campus-assist/rostering-api/pkg/storage"
)

// @title Campus Assist Rostering API
// @version 1.0.0
// @description Help-desk and lab assistant scheduling, attendance, and reporting service.
// @BasePath /
// @schemes http

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

	metricsSvc := service.NewMetricsService()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise database", "error", err)
	}
	defer db.Close()

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		registerPprof(r)
	}

	api := r.Group(cfg.APIPrefix)

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	assistantRepo := repository.NewAssistantRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	timeEntryRepo := repository.NewTimeEntryRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reportRepo := repository.NewReportRepository(db)

	clk := clock.Real()
	validate := validator.New()

	// Notification delivery (asynq producer/consumer) and the periodic
	// maintenance sweeper run outside the request path.
	notifyProducer := internaljobs.NewNotificationProducer(cfg.Events.RedisAddr, logr)
	defer notifyProducer.Close() //nolint:errcheck

	notificationSvc := service.NewNotificationService(notificationRepo, notifyProducer, logr)

	authSvc := service.NewAuthService(userRepo, studentRepo, assistantRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "rostering-api",
		Audience:          []string{"rostering-clients"},
	})
	authHandler := internalhandler.NewAuthHandler(authSvc)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Availability.CacheTTL, logr, cacheRepo != nil)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, assistantRepo, cacheSvc, cfg.Availability.CacheTTL, logr)
	availabilityHandler := internalhandler.NewAvailabilityHandler(availabilitySvc)

	schedulerSvc := service.NewSchedulerService(scheduleRepo, courseRepo, availabilitySvc, assistantRepo, notificationSvc, cfg.Scheduler.SolverTimeout, logr)
	schedulerHandler := internalhandler.NewSchedulerHandler(schedulerSvc)

	scheduleEditorSvc := service.NewScheduleEditorService(scheduleRepo, availabilityRepo, logr)
	scheduleEditorHandler := internalhandler.NewScheduleEditorHandler(scheduleEditorSvc)

	attendanceSvc := service.NewAttendanceService(timeEntryRepo, scheduleRepo, assistantRepo, notificationSvc, clk, logr)
	attendanceHandler := internalhandler.NewAttendanceHandler(attendanceSvc)

	requestSvc := service.NewRequestService(requestRepo, notificationSvc, clk, logr)
	requestHandler := internalhandler.NewRequestHandler(requestSvc)

	notificationHandler := internalhandler.NewNotificationHandler(notificationSvc)

	dashboardSvc := service.NewDashboardService(studentRepo, scheduleRepo, clk)
	dashboardHandler := internalhandler.NewDashboardHandler(dashboardSvc)

	// Reports: async CSV/PDF generation behind a local file store and
	// signed download tokens, driven by the generic in-memory job queue.
	fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(timeEntryRepo, scheduleRepo, fileStore, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr)
	reportWorker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)

	workers := cfg.Reports.WorkerConcurrency
	if workers <= 0 {
		workers = 1
	}
	reportQueue := pkgjobs.NewQueue("reports", reportWorker.Handle, pkgjobs.QueueConfig{
		Workers:    workers,
		BufferSize: workers * 4,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	queueCtx, cancelQueue := context.WithCancel(context.Background())
	reportQueue.Start(queueCtx)
	defer func() {
		cancelQueue()
		reportQueue.Stop()
	}()

	reportSvc := service.NewReportService(reportRepo, reportQueue, exportSvc, logr, service.ReportServiceConfig{
		ResultTTL:  cfg.Reports.SignedURLTTL,
		MaxRetries: cfg.Reports.WorkerRetries,
	})
	reportSvc.RecoverPendingJobs(queueCtx)
	reportSvc.StartCleanup(queueCtx)
	reportHandler := internalhandler.NewReportHandler(reportSvc)

	// Asynq consumer server for notification delivery, and the cron
	// sweeper for abandoned clock-ins, both running alongside the API.
	notifyServer := internaljobs.NewServer(cfg.Events.RedisAddr, cfg.Events.WorkerConcurrency, logr)
	notifyMux := asynq.NewServeMux()
	internaljobs.RegisterHandlers(notifyMux, internaljobs.NewLogDeliverer(logr))
	go func() {
		if err := notifyServer.Run(notifyMux); err != nil {
			logr.Sugar().Errorw("notification worker stopped", "error", err)
		}
	}()
	defer notifyServer.Shutdown()

	sweeper := internaljobs.NewSweeper(logr)
	if err := sweeper.AddTick(cfg.Events.SweepCronSpec, "auto-complete-shifts", func(ctx context.Context) error {
		completed, err := attendanceSvc.AutoCompleteSweep(ctx)
		if err != nil {
			return err
		}
		if completed > 0 {
			logr.Sugar().Infow("auto-completed abandoned shifts", "count", completed)
		}
		return nil
	}); err != nil {
		logr.Sugar().Fatalw("failed to schedule auto-complete sweep", "error", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Routes.
	authRoutes := api.Group("/auth")
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/register", authHandler.Register)
	authRoutes.POST("/forgot-password", authHandler.ForgotPassword)
	authRoutes.POST("/reset-password", authHandler.ResetPassword)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))

	secured.POST("/auth/change-password", authHandler.ChangePassword)
	secured.GET("/auth/me", authHandler.Me)

	scheduleGroup := secured.Group("/schedule")
	scheduleGroup.GET("/current", schedulerHandler.CurrentSchedule)
	scheduleGroup.POST("/generate", internalmiddleware.RBAC(string(models.RoleAdmin)), schedulerHandler.Generate)
	scheduleGroup.POST("/:id/publish", internalmiddleware.RBAC(string(models.RoleAdmin)), schedulerHandler.Publish)
	scheduleGroup.POST("/save", internalmiddleware.RBAC(string(models.RoleAdmin)), scheduleEditorHandler.Save)
	scheduleGroup.POST("/add-staff", internalmiddleware.RBAC(string(models.RoleAdmin)), scheduleEditorHandler.AddStaff)
	scheduleGroup.POST("/remove-staff", internalmiddleware.RBAC(string(models.RoleAdmin)), scheduleEditorHandler.RemoveStaff)

	staffGroup := secured.Group("/staff")
	staffGroup.GET("/available", availabilityHandler.ListAvailable)
	staffGroup.POST("/check-availability/batch", availabilityHandler.BatchAvailable)

	availabilityGroup := secured.Group("/availability")
	availabilityGroup.GET("", availabilityHandler.List)
	availabilityGroup.POST("", availabilityHandler.Declare)
	availabilityGroup.DELETE("/:id", availabilityHandler.Withdraw)

	timeTrackingGroup := secured.Group("/time-tracking")
	timeTrackingGroup.POST("/clock-in", attendanceHandler.ClockIn)
	timeTrackingGroup.POST("/clock-out", attendanceHandler.ClockOut)
	timeTrackingGroup.POST("/mark-missed", internalmiddleware.RBAC(string(models.RoleAdmin)), attendanceHandler.MarkMissed)
	timeTrackingGroup.GET("/today", attendanceHandler.TodayShift)
	timeTrackingGroup.GET("/stats", attendanceHandler.Stats)
	timeTrackingGroup.GET("/history", attendanceHandler.History)
	timeTrackingGroup.GET("/distribution", attendanceHandler.TimeDistribution)

	requestsGroup := secured.Group("/requests")
	requestsGroup.POST("", requestHandler.Submit)
	requestsGroup.GET("", requestHandler.List)
	requestsGroup.POST("/:id/approve", internalmiddleware.RBAC(string(models.RoleAdmin)), requestHandler.Approve)
	requestsGroup.POST("/:id/reject", internalmiddleware.RBAC(string(models.RoleAdmin)), requestHandler.Reject)
	requestsGroup.POST("/:id/cancel", requestHandler.Cancel)

	notificationsGroup := secured.Group("/notifications")
	notificationsGroup.GET("", notificationHandler.List)
	notificationsGroup.POST("/:id/read", notificationHandler.MarkRead)

	secured.GET("/volunteer/dashboard", dashboardHandler.Snapshot)

	reportsGroup := secured.Group("/reports")
	reportsGroup.POST("/generate", reportHandler.Generate)
	reportsGroup.GET("/:id", reportHandler.Status)
	reportsGroup.GET("/download/:token", reportHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func registerPprof(r *gin.Engine) {
	group := r.Group("/debug/pprof")
	group.GET("/", gin.WrapF(pprof.Index))
	group.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	group.GET("/profile", gin.WrapF(pprof.Profile))
	group.POST("/symbol", gin.WrapF(pprof.Symbol))
	group.GET("/symbol", gin.WrapF(pprof.Symbol))
	group.GET("/trace", gin.WrapF(pprof.Trace))
	group.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
	group.GET("/block", gin.WrapH(pprof.Handler("block")))
	group.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
	group.GET("/heap", gin.WrapH(pprof.Handler("heap")))
	group.GET("/mutex", gin.WrapH(pprof.Handler("mutex")))
	group.GET("/threadcreate", gin.WrapH(pprof.Handler("threadcreate")))
}
