package main

import (
	"log"

	"tandera.com/daypillar/internal/bootstrap"
	"tandera.com/daypillar/internal/config"
	"tandera.com/daypillar/internal/server"
	"tandera.com/daypillar/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect()
	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedDemo(db); err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}
	}

	redisClient := database.ConnectRedis()

	srv := server.NewServer(cfg, db, redisClient)

	log.Printf("🚀 daypillar listening on :%s", cfg.Port)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}
