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

	_ "github.com/medi-online/clinic-api/api/swagger"
	"github.com/medi-online/clinic-api/internal/handler"
	"github.com/medi-online/clinic-api/internal/middleware"
	"github.com/medi-online/clinic-api/internal/models"
	"github.com/medi-online/clinic-api/internal/repository"
	"github.com/medi-online/clinic-api/internal/service"
	"github.com/medi-online/clinic-api/pkg/cache"
	"github.com/medi-online/clinic-api/pkg/config"
	"github.com/medi-online/clinic-api/pkg/database"
	"github.com/medi-online/clinic-api/pkg/logger"
	corsmiddleware "github.com/medi-online/clinic-api/pkg/middleware/cors"
	reqidmiddleware "github.com/medi-online/clinic-api/pkg/middleware/requestid"
)

// @title Medi Online Clinic API
// @version 1.0.0
// @description Appointment booking, availability and messaging API
// @BasePath /api
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metricsService := service.NewMetricsService()

	// Redis is optional; without it the slot listing is computed per request.
	var cacheService *service.CacheService
	if cfg.Booking.SlotCacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, slot cache disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Booking.SlotCacheTTL, logr, true)
		}
	}

	doctorRepo := repository.NewDoctorRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	authService := service.NewAuthService(service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, logr)
	availabilityService := service.NewAvailabilityService(appointmentRepo, cacheService, cfg.Booking.SlotCacheTTL, logr)
	notificationService := service.NewNotificationService(service.NotificationConfig{
		Enabled:    cfg.Notifications.Enabled,
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
	}, logr)
	notificationService.Start(ctx)
	defer notificationService.Stop()

	patientService := service.NewPatientService(patientRepo, authService, validate, logr)
	doctorService := service.NewDoctorService(doctorRepo, authService, availabilityService, validate, logr)
	appointmentService := service.NewAppointmentService(appointmentRepo, doctorRepo, availabilityService, notificationService, metricsService, validate, logr)
	messageService := service.NewMessageService(messageRepo, appointmentRepo, logr)
	adminService := service.NewAdminService(doctorRepo, patientRepo, authService, service.AdminCredentials{
		Email:        cfg.Admin.Email,
		PasswordHash: cfg.Admin.PasswordHash,
	}, validate, logr)
	exportService := service.NewExportService(appointmentRepo, cfg.Exports.Enabled, logr)

	patientHandler := handler.NewPatientHandler(patientService)
	doctorHandler := handler.NewDoctorHandler(doctorService)
	appointmentHandler := handler.NewAppointmentHandler(appointmentService, exportService)
	messageHandler := handler.NewMessageHandler(messageService)
	adminHandler := handler.NewAdminHandler(adminService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	requireAuth := middleware.JWT(authService)
	patientOnly := middleware.RequireRoles(models.RolePatient)
	doctorOnly := middleware.RequireRoles(models.RoleDoctor)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	patients := api.Group("/patients")
	{
		patients.POST("/register", patientHandler.Register)
		patients.POST("/login", patientHandler.Login)
		patients.GET("/profile", requireAuth, patientOnly, patientHandler.Profile)
	}

	doctors := api.Group("/doctors")
	{
		doctors.POST("/register", doctorHandler.Register)
		doctors.POST("/login", doctorHandler.Login)
		doctors.GET("", doctorHandler.List)
		doctors.GET("/profile", requireAuth, doctorOnly, doctorHandler.Profile)
		doctors.PUT("/availability", requireAuth, doctorOnly, doctorHandler.UpdateAvailability)
		doctors.GET("/:id", doctorHandler.Get)
	}

	appointments := api.Group("/appointments")
	{
		appointments.GET("/doctor/:doctorId/slots", appointmentHandler.Slots)
		appointments.POST("", requireAuth, patientOnly, appointmentHandler.Book)
		appointments.GET("/patient", requireAuth, patientOnly, appointmentHandler.ListForPatient)
		appointments.GET("/doctor", requireAuth, doctorOnly, appointmentHandler.ListForDoctor)
		appointments.GET("/export", requireAuth, doctorOnly, appointmentHandler.Export)
		appointments.PATCH("/:id/status", requireAuth, doctorOnly, appointmentHandler.UpdateStatus)
	}

	messages := api.Group("/messages", requireAuth)
	{
		messages.GET("/appointments/:appointmentId", messageHandler.List)
		messages.POST("/appointments/:appointmentId", messageHandler.Send)
	}

	admin := api.Group("/admin")
	{
		admin.POST("/login", adminHandler.Login)

		moderation := admin.Group("", requireAuth, adminOnly)
		moderation.GET("/doctors", adminHandler.ListDoctors)
		moderation.GET("/patients", adminHandler.ListPatients)
		moderation.PATCH("/doctors/:id/approval", adminHandler.SetDoctorApproval)
		moderation.PATCH("/doctors/:id/verification", adminHandler.SetDoctorVerified)
		moderation.PATCH("/doctors/:id/block", adminHandler.SetDoctorBlocked)
		moderation.PATCH("/patients/:id/block", adminHandler.SetPatientBlocked)
		moderation.PATCH("/patients/:id/verification", adminHandler.SetPatientVerified)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
