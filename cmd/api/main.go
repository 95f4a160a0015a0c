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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/tumblelab/gym-api/api/swagger"
	"github.com/tumblelab/gym-api/internal/handler"
	"github.com/tumblelab/gym-api/internal/middleware"
	"github.com/tumblelab/gym-api/internal/models"
	"github.com/tumblelab/gym-api/internal/repository"
	"github.com/tumblelab/gym-api/internal/service"
	"github.com/tumblelab/gym-api/pkg/cache"
	"github.com/tumblelab/gym-api/pkg/config"
	"github.com/tumblelab/gym-api/pkg/database"
	"github.com/tumblelab/gym-api/pkg/logger"
	corsmiddleware "github.com/tumblelab/gym-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tumblelab/gym-api/pkg/middleware/requestid"
)

// @title Gym Back-Office API
// @version 1.0.0
// @description Back-office and family-facing API for a youth gymnastics facility
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	programRepo := repository.NewProgramRepository(db)
	iterationRepo := repository.NewIterationRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	eventRepo := repository.NewEventRepository(db)
	inquiryRepo := repository.NewInquiryRepository(db)

	// Redis is optional. The board degrades to uncached reads without it.
	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, board caching disabled", "error", err)
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "gym-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	categorySvc := service.NewCategoryService(categoryRepo, validate, logr)
	programSvc := service.NewProgramService(programRepo, categoryRepo, validate, logr)
	iterationSvc := service.NewIterationService(iterationRepo, programRepo, enrollmentRepo, validate, logr)
	familySvc := service.NewFamilyService(familyRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, iterationRepo, familyRepo, validate, logr)
	inquirySvc := service.NewInquiryService(inquiryRepo, validate, logr)
	exportSvc := service.NewExportService(enrollmentRepo, iterationRepo, logr, cfg.Exports.Enabled)

	var eventSvc *service.EventService
	if cacheRepo != nil {
		eventSvc = service.NewEventService(eventRepo, cacheRepo, validate, logr, cfg.Board)
	} else {
		eventSvc = service.NewEventService(eventRepo, nil, validate, logr, cfg.Board)
	}
	eventSvc.SetMetrics(metricsSvc)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	categoryHandler := handler.NewCategoryHandler(categorySvc)
	programHandler := handler.NewProgramHandler(programSvc)
	iterationHandler := handler.NewIterationHandler(iterationSvc)
	familyHandler := handler.NewFamilyHandler(familySvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	boardHandler := handler.NewBoardHandler(eventSvc, enrollmentSvc)
	inquiryHandler := handler.NewInquiryHandler(inquirySvc)
	exportHandler := handler.NewExportHandler(exportSvc)

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
		start := time.Now()
		err := db.PingContext(c.Request.Context())
		metricsSvc.ObserveDBQuery("ping", time.Since(start))
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public surface: event board, program catalog, and the inquiry form.
	api.GET("/board/events", boardHandler.Events)
	api.GET("/programs", programHandler.List)
	api.POST("/inquiries", inquiryHandler.Submit)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		session := auth.Group("")
		session.Use(middleware.JWT(authSvc))
		session.POST("/logout", authHandler.Logout)
		session.POST("/change-password", authHandler.ChangePassword)
		session.GET("/me", authHandler.Me)
	}

	admin := api.Group("")
	admin.Use(middleware.JWT(authSvc))

	staff := admin.Group("")
	staff.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleStaff))
	{
		staff.GET("/categories", categoryHandler.List)
		staff.GET("/categories/:id", categoryHandler.Get)
		staff.GET("/programs/:id", programHandler.Get)
		staff.GET("/programs/:id/iterations", iterationHandler.ListByProgram)
		staff.GET("/iterations/:id", iterationHandler.Get)
		staff.GET("/iterations/:id/roster", exportHandler.Roster)

		staff.GET("/families", familyHandler.List)
		staff.GET("/families/:id", familyHandler.Get)
		staff.POST("/families", familyHandler.Create)
		staff.PUT("/families/:id", familyHandler.Update)
		staff.GET("/families/:id/athletes", familyHandler.ListAthletes)
		staff.POST("/families/:id/athletes", familyHandler.AddAthlete)
		staff.PUT("/athletes/:id", familyHandler.UpdateAthlete)

		staff.GET("/enrollments", enrollmentHandler.List)
		staff.GET("/enrollments/:id", enrollmentHandler.Get)
		staff.POST("/enrollments", enrollmentHandler.Enroll)
		staff.POST("/enrollments/:id/cancel", enrollmentHandler.Cancel)

		staff.GET("/events", eventHandler.List)
		staff.GET("/events/:id", eventHandler.Get)
		staff.GET("/events/:id/edit-log", eventHandler.EditLog)

		staff.GET("/inquiries", inquiryHandler.List)
		staff.GET("/inquiries/:id", inquiryHandler.Get)
		staff.PUT("/inquiries/:id/status", inquiryHandler.UpdateStatus)
	}

	managers := admin.Group("")
	managers.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	{
		managers.POST("/categories", categoryHandler.Create)
		managers.PUT("/categories/:id", categoryHandler.Update)
		managers.POST("/categories/:id/archive", categoryHandler.Archive)
		managers.POST("/categories/:id/restore", categoryHandler.Restore)

		managers.POST("/programs", programHandler.Create)
		managers.PUT("/programs/:id", programHandler.Update)
		managers.POST("/programs/:id/archive", programHandler.Archive)
		managers.POST("/programs/:id/restore", programHandler.Restore)

		managers.POST("/programs/:id/iterations", iterationHandler.Create)
		managers.PUT("/iterations/:id", iterationHandler.Replace)
		managers.DELETE("/iterations/:id", iterationHandler.Delete)

		managers.POST("/events", eventHandler.Create)
		managers.PUT("/events/:id", eventHandler.Update)
		managers.POST("/events/:id/archive", eventHandler.Archive)
		managers.POST("/events/:id/restore", eventHandler.Restore)
	}

	// Admins can read their own account record, superadmins everything.
	admin.GET("/users/:id", middleware.RBAC(string(models.RoleSuperAdmin), middleware.SelfRule), userHandler.Get)

	superadmin := admin.Group("")
	superadmin.Use(middleware.RequireRoles(models.RoleSuperAdmin))
	{
		superadmin.GET("/users", userHandler.List)
		superadmin.POST("/users", userHandler.Create)
		superadmin.PUT("/users/:id", userHandler.Update)
		superadmin.DELETE("/users/:id", userHandler.Deactivate)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
