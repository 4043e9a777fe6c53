package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"perspectives-be/internal/bootstrap"
	"perspectives-be/internal/config"
	"perspectives-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer func() {
		if container.EventPublisher != nil {
			container.EventPublisher.Close()
		}
	}()

	// 4. Start Consumer Loop
	log.Println("Starting Perspectives Job Consumer...")
	if err := container.ConsumerService.Consume(context.Background()); err != nil {
		log.Fatalf("Consumer Error: %v", err)
	}

	// 5. Block until shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down worker...")
}
