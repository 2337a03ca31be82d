package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/toonface/internal/api"
	"github.com/your-org/toonface/internal/api/ws"
	"github.com/your-org/toonface/internal/config"
	"github.com/your-org/toonface/internal/lifecycle"
	"github.com/your-org/toonface/internal/models"
	"github.com/your-org/toonface/internal/observability"
	"github.com/your-org/toonface/internal/queue"
	"github.com/your-org/toonface/internal/storage"
	"github.com/your-org/toonface/internal/transform"
	"github.com/your-org/toonface/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting toonface API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("apply schema", "error", err)
		os.Exit(1)
	}

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO, cfg.Server.BaseURL)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Consume asset events and broadcast them via WebSocket
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create asset event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeAssetEvents(ctx, "api-asset-events", func(ctx context.Context, msg jetstream.Msg) error {
		var event models.AssetEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			return err
		}

		hub.BroadcastEvent(&dto.WSEvent{
			Type:     event.Type,
			DeviceID: event.DeviceID,
			Data: dto.AssetEventData{
				OriginalID: event.OriginalID,
				AssetID:    event.AssetID,
				AssetURL:   event.AssetURL,
				CreatedAt:  event.CreatedAt,
			},
		})

		return nil
	})
	if err != nil {
		slog.Warn("start asset event consumer", "error", err)
	}

	// Outbound transform gateway and lifecycle manager
	gateway := transform.NewClient(cfg.Transform)
	manager := lifecycle.NewManager(db, minioStore, gateway, producer)

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		MinIO:          minioStore,
		Producer:       producer,
		Hub:            hub,
		Lifecycle:      manager,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Transform.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}
