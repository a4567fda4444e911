package main

import (
	"context"
	"log"
	"time"

	"anoa.com/volunteergoals/internal/bootstrap"
	"anoa.com/volunteergoals/internal/config"
	"anoa.com/volunteergoals/internal/server"
	"anoa.com/volunteergoals/pkg/database"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := bootstrap.SeedSettings(db); err != nil {
		log.Fatalf("failed to seed settings: %v", err)
	}
	if err := bootstrap.SeedAdminUser(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("failed to seed admin user: %v", err)
	}

	redisClient := connectRedis(cfg.RedisURL)

	srv, err := server.NewServer(cfg, db, redisClient)
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

// connectRedis returns nil when REDIS_URL is unset or unreachable; rate
// limiting, the weekly lock and activity fan-out are then disabled.
func connectRedis(url string) *redis.Client {
	if url == "" {
		log.Println("REDIS_URL not set, running without redis")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("⚠️ Invalid REDIS_URL: %v", err)
		return nil
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ Redis unreachable, running without it: %v", err)
		_ = client.Close()
		return nil
	}

	log.Println("✅ Redis connected")
	return client
}
