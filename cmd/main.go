package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"pdf-qa-service/internal/ai"
	"pdf-qa-service/internal/auth"
	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/ingest"
	"pdf-qa-service/internal/logger"
	"pdf-qa-service/internal/session"
	"pdf-qa-service/internal/telemetry"
	"pdf-qa-service/middleware"
	"pdf-qa-service/routes"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if cfg.TracingEnable {
		shutdown, err := telemetry.InitTracer("pdf-qa-service", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

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

	ctx := context.Background()
	embedder, cleanupEmbedder, err := ai.NewEmbedderFromConfig(ctx, cfg, rdb, metrics)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer cleanupEmbedder()

	chat := ai.NewGeminiChat(cfg.GeminiAPIKey, cfg.GeminiAPIURL)

	store := session.NewStore(mongoClient, cfg)
	manager := session.NewManager(cfg, embedder, chat, store)
	manager.StartSweeper()
	defer manager.StopSweeper()

	registry := ingest.NewRegistry(cfg.AllowedTypes...)

	issuer, err := auth.NewTokenIssuer(cfg.SessionTokenSecret, cfg.SessionTTL, rdb)
	if err != nil {
		log.Fatal("Failed to initialize token issuer:", err)
	}

	queueClient := asynq.NewClient(asynqRedisOpt(cfg))
	defer queueClient.Close()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(nil))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	if metrics != nil {
		router.Use(middleware.MetricsMiddleware(metrics))
	}
	if cfg.TracingEnable {
		router.Use(otelgin.Middleware("pdf-qa-service"))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	authMiddleware := middleware.NewAuthMiddleware(issuer)

	routes.SetupSessionRoutes(router, cfg, manager, issuer, authMiddleware)
	routes.SetupDocumentRoutes(router, cfg, manager, store, registry, queueClient, metrics, authMiddleware)
	routes.SetupChatRoutes(router, cfg, manager, metrics, authMiddleware)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}

func asynqRedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}
