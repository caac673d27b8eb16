package main

import (
	"fmt"
	"time"

	"taskpad/configs"
	v1 "taskpad/internal/api/v1"
	"taskpad/internal/config"
	"taskpad/internal/middleware"
	"taskpad/internal/repository"
	myws "taskpad/internal/websocket"
	"taskpad/pkg/database"
	"taskpad/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/websocket/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	// Loggers first, everything else logs through them
	logger.InitLoggers()
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	// Load config
	cfg := configs.LoadConfig()
	config.SecretKey = []byte(cfg.JWTSecret)
	config.EncryptKey = cfg.EncryptKey
	config.UploadDir = cfg.UploadDir

	// Database
	config.DB = database.ConnectDB(cfg)
	defer config.DB.Close()
	logger.SystemLogger.Info("Database Connected")

	repository.CreateTableIfNotExists(config.DB)

	// Redis
	config.RedisClient = database.ConnectRedis(cfg)
	defer config.RedisClient.Close()

	// Event hub for connected clients
	go config.Events.Run()

	// Daily trash retention job
	retention := time.Duration(cfg.TrashRetentionDays) * 24 * time.Hour
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@daily", func() {
		purged, err := repository.PurgeDeletedTasks(config.DB, retention)
		if err != nil {
			logger.ErrorLogger.Error("Trash purge failed", zap.Error(err))
			return
		}
		logger.SystemLogger.Info("Trash purged", zap.Int64("tasks", purged))
	}); err != nil {
		logger.ErrorLogger.Error("Could not schedule trash purge", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Body limit above the 5MB attachment cap so oversize uploads reach
	// the handler and get a proper error instead of a bare 413
	app := fiber.New(fiber.Config{BodyLimit: 10 << 20})

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

	// API v1 routes
	v1.RegisterRoutes(app)

	// WebSocket change feed; the token rides in the query string since
	// browsers cannot set headers on the upgrade request
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			userID, err := middleware.ParseToken(c.Query("token"))
			if err != nil {
				return fiber.ErrUnauthorized
			}
			c.Locals("userID", userID)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		client := &myws.Client{Conn: conn, UserID: conn.Locals("userID").(int)}
		config.Events.Register <- client
		defer func() {
			config.Events.Unregister <- client
		}()
		for {
			// The feed is one-way; reads only detect disconnects
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}))

	logger.SystemLogger.Info("Application ready", zap.Int("port", cfg.AppPort))
	if err := app.Listen(fmt.Sprintf(":%d", cfg.AppPort)); err != nil {
		logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
	}
}
