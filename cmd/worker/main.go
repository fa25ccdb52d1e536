package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rvegajr/blessbox-server/internal/database"
	"github.com/rvegajr/blessbox-server/internal/onboarding"
	"github.com/rvegajr/blessbox-server/internal/qrexport"
	"github.com/rvegajr/blessbox-server/internal/tasks"
	"github.com/rvegajr/blessbox-server/pkg/config"
	"github.com/rvegajr/blessbox-server/pkg/queue"
	"github.com/rvegajr/blessbox-server/pkg/util"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env, "worker")
	slog.SetDefault(logger)

	logger.Info("starting BlessBox worker")

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// QR export uploads go to the configured bucket
	store, err := qrexport.NewS3Store(context.Background(), cfg.Export)
	if err != nil {
		logger.Error("failed to create export store", "error", err)
		os.Exit(1)
	}
	exporter := qrexport.NewService(db, store, cfg.Server.BaseURL, logger)

	// Session cleanup needs the same store the server writes to
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	sessions := onboarding.NewRedisStore(redisClient)

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 10)

	// Create task handler
	handler := tasks.NewHandler(db, logger, exporter, sessions)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Periodic session cleanup
	scheduler := queue.NewScheduler(&cfg.Redis)
	if err := util.ValidateCronExpr(cfg.Jobs.SessionCleanupCron); err != nil {
		logger.Error("invalid session cleanup cron expression", "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.Register(cfg.Jobs.SessionCleanupCron, tasks.NewSessionCleanupTask()); err != nil {
		logger.Error("failed to register session cleanup job", "error", err)
		os.Exit(1)
	}
	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Handle shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	// Wait for context cancellation
	<-ctx.Done()

	// Close Redis connection
	redisClient.Close()

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
