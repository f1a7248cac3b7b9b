package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gitinsight/gitinsight/config"
	"github.com/gitinsight/gitinsight/internal/ai"
	"github.com/gitinsight/gitinsight/internal/database"
	"github.com/gitinsight/gitinsight/internal/pkg/queue"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fail fast: a worker without a usable model would dequeue tasks it
	// can never complete.
	summarizer, err := ai.NewSummarizer(ctx, &cfg.AI)
	if err != nil {
		log.Fatalf("Failed to init summarizer: %v", err)
	}
	defer summarizer.Close()
	log.Printf("Summarizer initialized, model: %s", cfg.AI.ModelName)

	aiQueue := queue.NewQueue(rdb, cfg.Queue.AIAnalysisQueue)
	aiWorker := ai.NewWorker(rdb, summarizer)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	log.Printf("AI worker started, max workers: %d", cfg.Queue.MaxWorkers)

	for i := 0; i < cfg.Queue.MaxWorkers; i++ {
		go func(workerID int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("Worker %d shutting down", workerID)
					return
				default:
					msg, err := aiQueue.PopAITask(ctx, 5*time.Second)
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

					log.Printf("Worker %d: analyzing analysis %d", workerID, msg.AnalysisID)
					if err := aiWorker.Process(ctx, msg); err != nil {
						log.Printf("Worker %d: analysis %d failed: %v", workerID, msg.AnalysisID, err)
					}
				}
			}
		}(i)
	}

	<-ctx.Done()
	log.Println("AI worker shutdown complete")
}
