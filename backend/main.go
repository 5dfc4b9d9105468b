package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnhub/backend/config"
	"learnhub/backend/events"
	"learnhub/backend/middleware"
	"learnhub/backend/progress"
	"learnhub/backend/routes"
	"learnhub/backend/scheduler"
	"learnhub/backend/store"
	"learnhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const stateIdleAfter = 30 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(utils.LoggerConfig{Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		logger.Fatal("Error initializing database", "error", err)
	}
	if err := store.AutoMigrate(db); err != nil {
		logger.Fatal("Error migrating database", "error", err)
	}
	repos := store.New(db, logger)

	var publisher events.Publisher = events.Nop{}
	if cfg.RedisAddr != "" {
		publisher, err = events.NewRedisPublisher(cfg.RedisAddr, cfg.RedisChannel, logger)
		if err != nil {
			logger.Warn("progress events disabled", "error", err)
			publisher = events.Nop{}
		}
	}
	defer publisher.Close()

	svc := progress.NewService(repos, publisher, logger, progress.Options{
		Location:    cfg.Location(),
		RecentLimit: cfg.RecentTopicsLimit,
	})
	registry := progress.NewRegistry(svc)
	defer registry.Close()

	jobs := scheduler.New(repos.Stats, registry, logger, scheduler.Options{
		Location:   cfg.Location(),
		ExpiryCron: cfg.StreakExpiryCron,
		IdleAfter:  stateIdleAfter,
	})
	if err := jobs.Start(); err != nil {
		logger.Fatal("Error starting scheduler", "error", err)
	}
	defer jobs.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{AppName: "learnhub"})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, routes.Deps{Repos: repos, Registry: registry, Cfg: cfg, Log: logger})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		_ = app.Shutdown()
	}()

	// Start server
	logger.Info("listening", "port", cfg.ServerPort, "env", cfg.AppEnv, "db", cfg.DBDriver)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Error("server stopped", "error", err)
	}
}
