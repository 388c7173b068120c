package main

import (
	"fmt"
	"time"

	"trackcrm/configs"
	v1 "trackcrm/internal/api/v1"
	"trackcrm/internal/config"
	"trackcrm/internal/middleware"
	"trackcrm/internal/repository"
	"trackcrm/internal/websocket"
	"trackcrm/pkg/database"
	"trackcrm/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"
)

func main() {
	logger.InitLoggers()
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	cfg := configs.LoadConfig()
	config.Apply(cfg)

	config.DB = database.ConnectDB(cfg)
	defer config.DB.Close()

	logger.SystemLogger.Info("Database Connected")

	repository.CreateTableIfNotExists(config.DB)
	if cfg.PresidentPassword != "" {
		repository.CreatePresidentUser(config.DB, cfg.PresidentPassword)
	}

	config.RedisClient = database.ConnectRedis(cfg)
	defer config.RedisClient.Close()

	app := fiber.New()

	// Middleware
	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	v1.RegisterRoutes(app)

	// Activity feed
	hub := websocket.StartHub()
	v1.RegisterFeed(app, hub)

	addr := fmt.Sprintf(":%d", cfg.AppPort)
	logger.SystemLogger.Info("Application ready", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
	}
}
