package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/normatel/norahub/internal/config"
	"github.com/normatel/norahub/router"
)

func main() {
	log.Println("Starting NoraHub API...")

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

	// Set timezone to UTC for consistent time handling
	if _, err := pg.Exec("SET TIME ZONE 'UTC'"); err != nil {
		log.Printf("Failed to set timezone to UTC: %v", err)
	} else {
		log.Println("  Set database timezone to UTC")
	}

	log.Println("  Connected to database successfully")

	// Redis connection (favorites cache, notification pub/sub)
	var rdb *redis.Client
	if config.App.RedisURL != "" {
		opts, err := redis.ParseURL(config.App.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
		log.Println("  Connected to Redis")
	} else {
		log.Println("  No REDIS_URL configured, running without cache and pub/sub")
	}

	r := router.NewGinRouter(pg, rdb)

	port := config.App.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
