package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gitinsight/gitinsight/config"
	"github.com/gitinsight/gitinsight/internal/database"
	"github.com/gitinsight/gitinsight/internal/pkg/cron"
	"github.com/gitinsight/gitinsight/internal/repository"
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

	analysisRepo := repository.NewAnalysisRepository(db)

	jobTimeout := time.Duration(cfg.Queue.JobTimeoutMinutes) * time.Minute
	dirExpiry := time.Duration(cfg.Cleanup.ExpireHours) * time.Hour

	svc := cron.NewService(analysisRepo, cfg.Clone.TempDir, jobTimeout, dirExpiry)
	svc.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal")
	svc.Stop()
}
