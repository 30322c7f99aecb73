package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xaenox/client-hunter/internal/api"
	"github.com/xaenox/client-hunter/internal/classifier"
	"github.com/xaenox/client-hunter/internal/monitor"
	"github.com/xaenox/client-hunter/internal/notifier"
	"github.com/xaenox/client-hunter/internal/storage"
	"github.com/xaenox/client-hunter/internal/telegram"
	"github.com/xaenox/client-hunter/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStorage(dbConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize Telegram provider
	bot, err := telegram.NewBotProvider(cfg.Telegram.Token, cfg.Monitor.BufferSize, logger)
	if err != nil {
		logger.Fatal("Failed to create Telegram provider", zap.Error(err))
	}
	bot.Start()
	provider := telegram.NewGuardedProvider(
		bot,
		cfg.Monitor.RetryAttempts,
		time.Duration(cfg.Monitor.RetryDelaySeconds)*time.Second,
		logger,
	)

	// Initialize classifier gate
	clf := classifier.NewGPTClassifier(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		classifier.Mode(cfg.Classifier.Mode),
		logger,
	)
	gate := classifier.NewGate(
		clf,
		classifier.Mode(cfg.Classifier.Mode),
		time.Duration(cfg.Classifier.TimeoutSeconds)*time.Second,
		logger,
	)

	// Initialize notification pipeline
	dispatcher := notifier.NewDispatcher(notifier.NewTelegramNotifier(bot.API(), logger), logger)

	// Initialize scanner and scheduler
	recorder := monitor.NewRecorder(store, logger)
	scanner := monitor.NewScanner(provider, gate, recorder, dispatcher, store, cfg.Monitor.FetchLimit, logger)
	scheduler := monitor.NewScheduler(store, scanner, monitor.SchedulerConfig{
		TickInterval:  time.Duration(cfg.Scheduler.TickSeconds) * time.Second,
		ErrorBackoff:  time.Duration(cfg.Scheduler.ErrorBackoffSeconds) * time.Second,
		StopTimeout:   time.Duration(cfg.Scheduler.StopTimeoutSeconds) * time.Second,
		CheckInterval: time.Duration(cfg.Scheduler.CheckIntervalMinutes) * time.Minute,
	}, logger)
	scheduler.Start()

	// Start the HTTP API
	srv := api.NewServer(cfg.Server.Port, store, scheduler, provider, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()
	logger.Info("Client hunter started", zap.Int("port", cfg.Server.Port))

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := provider.Close(ctx); err != nil {
		logger.Error("Telegram provider close failed", zap.Error(err))
	}
}
