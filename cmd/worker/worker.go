package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"pdf-qa-service/internal/ai"
	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/ingest"
	"pdf-qa-service/internal/logger"
	"pdf-qa-service/internal/queue"
	"pdf-qa-service/internal/session"
	"pdf-qa-service/internal/telemetry"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	embedder, cleanupEmbedder, err := ai.NewEmbedderFromConfig(context.Background(), cfg, rdb, metrics)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer cleanupEmbedder()

	store := session.NewStore(mongoClient, cfg)
	registry := ingest.NewRegistry(cfg.AllowedTypes...)

	processor, err := queue.NewIngestProcessor(cfg, registry, embedder, store, metrics)
	if err != nil {
		log.Fatal("Failed to create ingest processor:", err)
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"ingest":  7,
				"default": 3,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestDocument, processor.ProcessIngest)

	logger.Info("Ingestion worker starting", "redis", cfg.RedisURL, "concurrency", 10)
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
