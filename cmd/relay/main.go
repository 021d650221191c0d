// Package main implements the outbox relay. It drains events the command
// handlers wrote to the DynamoDB outbox and publishes them to EventBridge,
// retrying each event until it lands or exhausts its attempts.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pantry-backend/infrastructure/config"
	"pantry-backend/infrastructure/di"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Close()

	if container.Outbox == nil {
		container.Logger.Fatal("Outbox relay requires the dynamodb driver",
			zap.String("driver", cfg.CatalogDriver),
		)
	}

	container.Logger.Info("Starting outbox relay",
		zap.String("table", cfg.DynamoDBTable),
		zap.String("eventBus", cfg.EventBusName),
	)
	container.Outbox.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down relay...")
	container.Outbox.Stop()

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}
}
