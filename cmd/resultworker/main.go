package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gitinsight/gitinsight/config"
	"github.com/gitinsight/gitinsight/internal/consumer"
	"github.com/gitinsight/gitinsight/internal/database"
	"github.com/gitinsight/gitinsight/internal/pkg/queue"
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

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	resultQueue := queue.NewQueue(rdb, cfg.Queue.ResultQueue)

	analysisRepo := repository.NewAnalysisRepository(db)
	resultConsumer := consumer.NewConsumer(analysisRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	// The store is the single writer of the job record past creation, so
	// one consumer loop is enough; results are tiny status updates.
	log.Println("Result consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Println("Consumer shutting down")
				return
			default:
				msg, err := resultQueue.PopResult(ctx, 5*time.Second)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("Consumer: failed to pop result: %v", err)
					continue
				}

				if msg == nil {
					continue // timeout, keep waiting
				}

				if err := resultConsumer.Consume(ctx, msg); err != nil {
					log.Printf("Consumer: failed to apply result for analysis %d: %v", msg.AnalysisID, err)
				}
			}
		}
	}()

	<-ctx.Done()
	log.Println("Result consumer shutdown complete")
}
