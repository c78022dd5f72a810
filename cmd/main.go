package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"onion-detect/internal/events"
	"onion-detect/internal/inference"
	"onion-detect/internal/models"
	"onion-detect/internal/pipeline"
	"onion-detect/internal/server"
	"onion-detect/internal/storage"
	"onion-detect/internal/uploads"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := models.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The history store is optional: detection keeps working without it.
	var (
		history pipeline.HistoryStore
		repo    server.Repository
		db      *storage.Storage
	)
	if cfg.DatabaseURL != "" {
		initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
		db, err = storage.NewStorage(initCtx, cfg.DatabaseURL)
		initCancel()
		if err != nil {
			log.Printf("history store unavailable, detections will not be recorded: %v", err)
		} else {
			defer db.Close()
			history, repo = db, db
		}
	}

	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		log.Fatalf("failed to create upload dir %s: %v", cfg.UploadDir, err)
	}

	opts := []pipeline.Option{pipeline.WithHistory(history)}

	// Kafka producer and the stats consumer in background
	if cfg.KafkaEnabled() {
		producer := events.NewPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
		defer producer.Close()
		opts = append(opts, pipeline.WithEvents(producer))

		if db != nil {
			consumer := events.NewConsumer(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaGroupID, db)
			go consumer.Run(ctx)
		}
	}

	pipe := pipeline.New(
		pipeline.NewValidator(cfg.MaxUploadBytes, cfg.AllowedExtensions),
		uploads.NewTempStore(cfg.UploadDir),
		inference.NewMockEngine(uint64(time.Now().UnixNano())),
		opts...,
	)

	srv := server.NewServer(cfg, pipe, repo)

	go func() {
		log.Printf("Starting Onion Disease Detection API on %s (version %s)", cfg.ServerAddr, cfg.Version)
		if err := srv.Start(); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
