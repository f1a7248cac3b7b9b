package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gitinsight/gitinsight/config"
	"github.com/gitinsight/gitinsight/internal/database"
	"github.com/gitinsight/gitinsight/internal/pkg/queue"
	"github.com/gitinsight/gitinsight/internal/worker"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	repoQueue := queue.NewQueue(rdb, cfg.Queue.RepoProcessingQueue)
	aiQueue := queue.NewQueue(rdb, cfg.Queue.AIAnalysisQueue)

	processor := worker.NewProcessor(rdb, aiQueue, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	log.Printf("Repo worker started, max workers: %d", cfg.Queue.MaxWorkers)

	for i := 0; i < cfg.Queue.MaxWorkers; i++ {
		go func(workerID int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("Worker %d shutting down", workerID)
					return
				default:
					msg, err := repoQueue.PopRepoTask(ctx, 5*time.Second)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						log.Printf("Worker %d: failed to pop task: %v", workerID, err)
						continue
					}

					if msg == nil {
						continue // timeout, keep waiting
					}

					log.Printf("Worker %d: processing analysis %d", workerID, msg.AnalysisID)
					if err := processor.Process(ctx, msg); err != nil {
						log.Printf("Worker %d: analysis %d failed: %v", workerID, msg.AnalysisID, err)
					}
				}
			}
		}(i)
	}

	<-ctx.Done()
	log.Println("Repo worker shutdown complete")
}
