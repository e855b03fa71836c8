package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/evex-campus/backend/config"
	"github.com/evex-campus/backend/internal/activity"
	"github.com/evex-campus/backend/internal/analytics"
	"github.com/evex-campus/backend/internal/attendance"
	"github.com/evex-campus/backend/internal/auth"
	"github.com/evex-campus/backend/internal/events"
	"github.com/evex-campus/backend/internal/feedback"
	"github.com/evex-campus/backend/internal/middleware"
	"github.com/evex-campus/backend/internal/models"
	"github.com/evex-campus/backend/internal/notifications"
	"github.com/evex-campus/backend/internal/registrations"
	"github.com/evex-campus/backend/internal/universities"
	"github.com/evex-campus/backend/internal/venues"
	"github.com/evex-campus/backend/pkg/database"
	"github.com/evex-campus/backend/pkg/queue"
	redispkg "github.com/evex-campus/backend/pkg/redis"
	"github.com/evex-campus/backend/pkg/response"
	"github.com/evex-campus/backend/pkg/storage"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("connecting to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("running migrations", zap.Error(err))
	}

	rdb, err := redispkg.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis unavailable, realtime push and email degrade to local", zap.Error(err))
		rdb = nil
	}

	var emailQueue *queue.Queue
	if rdb != nil {
		emailQueue = queue.NewQueue(rdb.Client, logger)
	}

	var s3 *storage.S3
	s3, err = storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		MediaBucket:          cfg.AWS.MediaBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Warn("s3 unavailable, media uploads disabled", zap.Error(err))
		s3 = nil
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	hub := notifications.NewHub(logger)
	notifRepo := notifications.NewRepository(pool)
	notifier := notifications.NewNotifier(notifRepo, hub, rdb, emailQueue, logger)
	notifHandler := notifications.NewHandler(notifRepo, logger)
	if rdb != nil {
		go notifications.RunSubscriber(ctx, rdb, hub, logger)
	}

	recorder := activity.NewRecorder(pool, logger)
	activityHandler := activity.NewHandler(recorder, logger)

	regRepo := registrations.NewRepository(pool)
	regService := registrations.NewService(pool, regRepo, notifier, recorder, logger, cfg.Engine.LockTimeoutMS)
	regHandler := registrations.NewHandler(regService, regRepo, logger)

	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, s3, regService, logger)

	attRepo := attendance.NewRepository(pool)
	attHandler := attendance.NewHandler(attRepo, regService, logger)

	fbRepo := feedback.NewRepository(pool)
	fbHandler := feedback.NewHandler(fbRepo, attRepo, logger)

	uniRepo := universities.NewRepository(pool)
	uniHandler := universities.NewHandler(uniRepo, s3, logger)

	venueRepo := venues.NewRepository(pool)
	venueHandler := venues.NewHandler(venueRepo, logger)

	statsRepo := analytics.NewRepository(pool)
	statsHandler := analytics.NewHandler(statsRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")

	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	api.GET("/events", eventHandler.List)
	api.GET("/categories", eventHandler.Categories)
	api.GET("/universities", uniHandler.List)
	api.GET("/universities/:id", uniHandler.Get)

	authed := api.Group("", middleware.JWT(jwtService))
	{
		authed.GET("/auth/me", authHandler.Me)
		authed.PUT("/auth/me", authHandler.UpdateMe)

		authed.GET("/events/:id", eventHandler.Get)
		authed.POST("/events/:id/register", regHandler.Register)
		authed.DELETE("/events/:id/register", regHandler.Cancel)
		authed.POST("/events/:id/feedback", fbHandler.Submit)

		authed.GET("/registrations/me", regHandler.Mine)
		authed.GET("/activity", activityHandler.Mine)
		authed.GET("/analytics/me", statsHandler.Student)

		authed.GET("/notifications", notifHandler.List)
		authed.POST("/notifications/:id/read", notifHandler.MarkRead)
		authed.POST("/notifications/read-all", notifHandler.MarkAllRead)
		authed.GET("/ws/notifications", notifications.ServeWS(hub, logger))

		authed.GET("/venues", venueHandler.List)
		authed.GET("/venues/:id", venueHandler.Get)
	}

	organizer := authed.Group("", middleware.RequireRole(string(models.RoleOrganizer), string(models.RoleAdmin)))
	{
		organizer.POST("/events", eventHandler.Create)
		organizer.PUT("/events/:id", eventHandler.Update)
		organizer.DELETE("/events/:id", eventHandler.Cancel)
		organizer.POST("/events/:id/complete", eventHandler.Complete)
		organizer.POST("/events/:id/poster", eventHandler.UploadPoster)
		organizer.PATCH("/events/:id/capacity", regHandler.SetCapacity)
		organizer.GET("/organizer/events", eventHandler.Mine)
		organizer.GET("/events/:id/registrations", regHandler.ListForEvent)
		organizer.GET("/events/:id/waitlist", regHandler.Waitlist)
		organizer.POST("/events/:id/attendance", attHandler.Mark)
		organizer.GET("/events/:id/attendance", attHandler.List)
		organizer.GET("/events/:id/feedback", fbHandler.ListForEvent)
		organizer.POST("/venues", venueHandler.Create)
		organizer.GET("/analytics/organizer", statsHandler.Organizer)
	}

	admin := authed.Group("", middleware.RequireRole(string(models.RoleAdmin)))
	{
		admin.POST("/universities", uniHandler.Create)
		admin.DELETE("/universities/:id", uniHandler.Deactivate)
		admin.POST("/universities/:id/logo", uniHandler.UploadLogo)
		admin.DELETE("/venues/:id", venueHandler.Deactivate)
		admin.GET("/users", authHandler.List)
		admin.GET("/analytics/platform", statsHandler.Platform)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
