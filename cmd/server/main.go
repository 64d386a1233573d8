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

	"github.com/nats-io/nats.go/jetstream"

	"github.com/kbrose/deertracker/internal/api"
	"github.com/kbrose/deertracker/internal/api/ws"
	"github.com/kbrose/deertracker/internal/config"
	"github.com/kbrose/deertracker/internal/observability"
	"github.com/kbrose/deertracker/internal/queue"
	"github.com/kbrose/deertracker/internal/storage"
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

	slog.Info("starting review server", "port", cfg.Server.Port)

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	crops, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := crops.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// WebSocket hub for live detections
	hub := ws.NewHub()
	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// NATS is optional for the review server: without it the API
	// works, only the live feed is silent.
	var producer *queue.Producer
	if cfg.NATS.URL != "" {
		producer, err = queue.NewProducer(cfg.NATS.URL)
		if err != nil {
			slog.Warn("connect to nats", "error", err)
		} else {
			defer producer.Close()
			if err := producer.EnsureStream(ctx); err != nil {
				slog.Warn("ensure nats stream", "error", err)
			}

			consumer, err := queue.NewConsumer(cfg.NATS.URL)
			if err != nil {
				slog.Warn("create detection consumer", "error", err)
			} else {
				defer consumer.Close()
				err = consumer.ConsumeDetections(ctx, "review-server", func(ctx context.Context, msg jetstream.Msg) error {
					hub.BroadcastRaw(msg.Data())
					return nil
				})
				if err != nil {
					slog.Warn("start detection consumer", "error", err)
				}
			}
		}
	}

	router := api.NewRouter(api.RouterConfig{
		APIKey:   cfg.Server.APIKey,
		DB:       db,
		Crops:    crops,
		Producer: producer,
		Hub:      hub,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down review server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown http server", "error", err)
	}
	slog.Info("review server stopped")
}
