package main

import (
	"fmt"
	"log"

	"github.com/gitinsight/gitinsight/config"
	"github.com/gitinsight/gitinsight/internal/api"
	"github.com/gitinsight/gitinsight/internal/api/handler"
	"github.com/gitinsight/gitinsight/internal/database"
	"github.com/gitinsight/gitinsight/internal/pkg/queue"
	"github.com/gitinsight/gitinsight/internal/repository"
	"github.com/gitinsight/gitinsight/internal/service"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migrated")

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	repoQueue := queue.NewQueue(rdb, cfg.Queue.RepoProcessingQueue)

	analysisRepo := repository.NewAnalysisRepository(db)
	analysisService := service.NewAnalysisService(analysisRepo, repoQueue, cfg.Queue.ResultQueue)
	analysisHandler := handler.NewAnalysisHandler(analysisService)

	router := api.NewRouter(analysisHandler, cfg)
	engine := router.Setup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
