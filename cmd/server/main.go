// Package main runs the chat logging HTTP API with WebSocket tailing and
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chatvault/backend/config"
	"github.com/chatvault/backend/internal/attachments"
	"github.com/chatvault/backend/internal/auth"
	"github.com/chatvault/backend/internal/chats"
	"github.com/chatvault/backend/internal/messages"
	"github.com/chatvault/backend/internal/middleware"
	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/internal/organizations"
	"github.com/chatvault/backend/internal/ratelimit"
	"github.com/chatvault/backend/internal/realtime"
	"github.com/chatvault/backend/internal/users"
	"github.com/chatvault/backend/pkg/database"
	"github.com/chatvault/backend/pkg/queue"
	"github.com/chatvault/backend/pkg/redis"
	"github.com/chatvault/backend/pkg/response"
	"github.com/chatvault/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	response.SetProduction(cfg.App.Production())

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AttachmentsBucket:    cfg.AWS.AttachmentsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Repositories
	authRepo := auth.NewRepository(pool)
	orgRepo := organizations.NewRepository(pool)
	userRepo := users.NewRepository(pool)
	chatRepo := chats.NewRepository(pool)
	messageRepo := messages.NewRepository(pool)
	attachmentRepo := attachments.NewRepository(pool)

	// Credential verification and identity resolution
	verifier := auth.NewVerifier(jwtService, authRepo, orgRepo)
	resolver := auth.NewResolver(authRepo, orgRepo)

	// Handlers
	authHandler := auth.NewHandler(authRepo, orgRepo, jwtService, cfg.Retention.DefaultDays, logger)
	orgHandler := organizations.NewHandler(orgRepo, logger)
	userHandler := users.NewHandler(userRepo, logger)
	chatHandler := chats.NewHandler(chatRepo, jobQueue, logger)
	messageHandler := messages.NewHandler(messageRepo, chatRepo, hub)
	attachmentHandler := attachments.NewHandler(attachmentRepo, messageRepo, s3Client, logger)

	limitStore := ratelimit.NewRedisStore(rdb.Client, "")
	apiLimit := middleware.RateLimit(limitStore, middleware.RateLimitConfig{
		Class:       "api",
		WindowSecs:  cfg.RateLimit.WindowSeconds,
		MaxRequests: cfg.RateLimit.MaxRequests,
	}, logger)
	authLimit := middleware.RateLimit(limitStore, middleware.RateLimitConfig{
		Class:       "auth",
		WindowSecs:  cfg.RateLimit.WindowSeconds,
		MaxRequests: cfg.RateLimit.AuthMaxRequests,
	}, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public, tight rate limit)
	authGroup := router.Group("/v1/auth")
	authGroup.Use(authLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Protected API: rate limit first, then credential verification
	api := router.Group("/v1")
	api.Use(apiLimit)
	api.Use(middleware.Authenticate(verifier, resolver))
	{
		// Chats
		api.GET("/chats", chatHandler.List)
		api.POST("/chats", chatHandler.Create)
		api.GET("/chats/:id", chatHandler.GetByID)
		api.PATCH("/chats/:id", chatHandler.Update)
		api.DELETE("/chats/:id", chatHandler.Delete)
		api.GET("/chats/:id/stream", realtime.ServeWs(hub, chatRepo, logger))

		// Messages
		api.POST("/chats/:id/messages", messageHandler.Create)
		api.GET("/chats/:id/messages", messageHandler.ListByChat)
		api.GET("/messages/:id", messageHandler.GetByID)

		// Attachments
		if s3Client != nil {
			api.POST("/messages/:id/attachments", attachmentHandler.Create)
			api.GET("/messages/:id/attachments", attachmentHandler.ListByMessage)
			api.GET("/attachments/:id/url", attachmentHandler.DownloadURL)
			api.DELETE("/attachments/:id", attachmentHandler.Delete)
		}

		// Self-service (requires a user subject; org keys get 403)
		me := api.Group("")
		me.Use(middleware.RequireSubject())
		{
			me.GET("/users/me", userHandler.Me)
			me.POST("/users/me/api-key", userHandler.RotateMyAPIKey)
		}
		api.GET("/organizations/me", orgHandler.Me)

		// User management (admins, scoped to their organization)
		admin := api.Group("")
		admin.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSuperadmin))
		{
			admin.GET("/users", userHandler.List)
			admin.POST("/users", userHandler.Create)
			admin.GET("/users/:id", userHandler.GetByID)
			admin.PATCH("/users/:id", userHandler.Update)
			admin.DELETE("/users/:id", userHandler.Delete)
			admin.POST("/users/:id/api-key", userHandler.RotateAPIKey)
		}

		// Organization management (superadmin only)
		super := api.Group("")
		super.Use(middleware.RequireRole(models.RoleSuperadmin))
		{
			super.GET("/organizations", orgHandler.List)
			super.POST("/organizations", orgHandler.Create)
			super.GET("/organizations/:id", orgHandler.GetByID)
			super.PATCH("/organizations/:id", orgHandler.Update)
			super.DELETE("/organizations/:id", orgHandler.Delete)
			super.POST("/organizations/:id/api-key", orgHandler.RotateAPIKey)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
