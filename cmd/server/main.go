package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arcade-catalog/internal/config"
	"github.com/arcade-catalog/internal/handler"
	"github.com/arcade-catalog/internal/kafka"
	"github.com/arcade-catalog/internal/redis"
	"github.com/arcade-catalog/internal/service"
	"github.com/arcade-catalog/internal/storage"
	"github.com/arcade-catalog/internal/websocket"
	"github.com/arcade-catalog/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open storage; the backend is fixed for the process lifetime
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Initialize services; events go straight to the hub unless Redis
	// fan-out is enabled
	catalogService := service.NewCatalogService(store, wsHub, &cfg.Catalog, logger)

	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
		eventBus, err := redis.NewEventBus(&cfg.Redis, wsHub, logger)
		if err != nil {
			logger.Warn("failed to connect to Redis, events stay local", "error", err)
		} else {
			defer eventBus.Close()
			catalogService.SetNotifier(eventBus)
			go func() {
				if err := eventBus.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error("redis event relay stopped", "error", err)
				}
			}()
			logger.Info("connected to Redis")
		}
	}

	// Start snapshot worker
	var snapshotWorker *worker.SnapshotWorker
	if cfg.Snapshot.Enabled {
		snapshotWorker = worker.NewSnapshotWorker(catalogService, &cfg.Snapshot, logger)
		if err := snapshotWorker.Start(ctx); err != nil {
			logger.Error("failed to start snapshot worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Kafka consumer for bulk game imports
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		var err error
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, catalogService, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Initialize HTTP handler with WebSocket hub
	httpHandler := handler.NewHandler(catalogService, wsHub, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port, "database", store.UsingDatabase())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server first so no new mutations arrive
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop snapshot worker
	if snapshotWorker != nil {
		if err := snapshotWorker.Stop(); err != nil {
			logger.Error("failed to stop snapshot worker", "error", err)
		}
	}

	// Stop WebSocket hub and the Redis relay
	cancel()
	wsHub.Stop()

	logger.Info("server stopped")
}
