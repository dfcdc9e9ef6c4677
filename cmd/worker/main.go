package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/normatel/norahub/authz"
	"github.com/normatel/norahub/internal/config"
	"github.com/normatel/norahub/services"
	"github.com/normatel/norahub/workers"
)

func main() {
	log.Println("Starting workers...")

	// Load Config
	configPath := os.Getenv("norahub_CONFIG_PATH")

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Database connection
	if config.App.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable (or config) is required")
	}

	pg, err := sql.Open("postgres", config.App.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()

	// Test database connection
	if err := pg.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Println("  Connected to database successfully")

	var rdb *redis.Client
	if config.App.RedisURL != "" {
		opts, err := redis.ParseURL(config.App.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
	}

	// Initialize services
	registry := authz.NewSimpleCargoRegistry(pg)
	userService := services.NewUserService(pg, rdb, registry)
	notificationService := services.NewNotificationService(pg, rdb)
	fcmService := services.NewFCMService()

	notificationWorker := workers.NewNotificationWorker(notificationService, userService, fcmService)

	ctx, stop := context.WithCancel(context.Background())

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		notificationWorker.Run(ctx)
	}()

	// The storage op worker only runs when the object store is configured
	if store, err := services.NewGCSStore(ctx); err != nil {
		log.Printf("Object store not available, storage op worker disabled: %v", err)
	} else {
		storageWorker := workers.NewStorageOpWorker(services.NewFolderService(pg, store))
		wg.Add(1)
		go func() {
			defer wg.Done()
			storageWorker.Run(ctx)
		}()
	}

	// Wait for interrupt signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	log.Println("Workers started successfully. Press Ctrl+C to stop.")
	<-c

	log.Println("Shutting down workers...")
	stop()
	wg.Wait()
}
