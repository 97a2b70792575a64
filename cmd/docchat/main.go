package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"docchat/internal/config"
	"docchat/internal/database/kafka"
	"docchat/internal/database/milvus"
	"docchat/internal/database/minio"
	"docchat/internal/database/mysql"
	"docchat/internal/database/redis"
	"docchat/internal/docchat/api"
	"docchat/internal/docchat/dal"
	"docchat/internal/docchat/service"
	"docchat/internal/filestore"
	"docchat/internal/rag/embeddings"
	"docchat/internal/rag/interfaces"
	"docchat/internal/rag/llms"
	"docchat/internal/rag/loaders"
	"docchat/internal/rag/pipeline"
	"docchat/internal/rag/splitters"
	"docchat/internal/rag/storages/answercache"
	"docchat/internal/rag/storages/vectorstore"
	"docchat/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Secrets like OPENAI_API_KEY may live in a local .env file.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("docchat")
	appLogger.Info("Starting document chat service...")

	ctx := context.Background()
	health := make(map[string]api.HealthCheck)

	// Metadata store
	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		log.Fatalf("Failed to connect to MySQL: %v", err)
	}
	documentDAL := dal.NewDocumentDAL(db)
	if err := documentDAL.AutoMigrate(); err != nil {
		log.Fatalf("Failed to migrate documents table: %v", err)
	}
	health["mysql"] = mysql.HealthCheck

	// Vector store
	milvusClient, err := milvus.GetClient(ctx, &cfg.Databases.Milvus)
	if err != nil {
		log.Fatalf("Failed to connect to Milvus: %v", err)
	}
	defer milvusClient.Close()
	if err := milvusClient.EnsureCollection(ctx); err != nil {
		log.Fatalf("Failed to prepare Milvus collection: %v", err)
	}
	health["milvus"] = milvusClient.HealthCheck

	vectorStore, err := vectorstore.NewMilvusStore(milvusClient, appLogger)
	if err != nil {
		log.Fatalf("Failed to create vector store: %v", err)
	}

	// Uploaded-file store
	var files interfaces.FileStore
	switch cfg.Storage.Provider {
	case "minio":
		minioClient, err := minio.GetClient(&cfg.Storage.MinIO)
		if err != nil {
			log.Fatalf("Failed to connect to MinIO: %v", err)
		}
		if err := minio.EnsureBucket(ctx, minioClient, cfg.Storage.MinIO.Bucket); err != nil {
			log.Fatalf("Failed to prepare MinIO bucket: %v", err)
		}
		files = filestore.NewMinioStore(minioClient, cfg.Storage.MinIO.Bucket)
		health["minio"] = minio.HealthCheck
	case "local":
		localStore, err := filestore.NewLocalStore(cfg.Storage.LocalDir)
		if err != nil {
			log.Fatalf("Failed to prepare upload directory: %v", err)
		}
		files = localStore
	default:
		log.Fatalf("Unsupported storage provider: %s", cfg.Storage.Provider)
	}

	// Answer cache (optional)
	var cache interfaces.AnswerCache
	cacheTTL := cfg.RAG.ParsedAnswerCacheTTL()
	if cacheTTL > 0 {
		redisClient, err := redis.GetClient(&cfg.Databases.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redis.Close()
		cache = answercache.NewRedisCache(redisClient)
		health["redis"] = redis.HealthCheck
	}

	// Ingestion event publisher (optional)
	var events interfaces.EventPublisher
	if cfg.Databases.Kafka.Enabled {
		publisher := kafka.NewEventPublisher(&cfg.Databases.Kafka)
		defer publisher.Close()
		events = publisher
	}

	// External model clients
	requestTimeout := cfg.RAG.ParsedRequestTimeout()
	embedder := embeddings.NewOpenAIEmbedder(
		cfg.Embedding.OpenAI.APIKey, cfg.Embedding.OpenAI.BaseURL, cfg.Embedding.OpenAI.Model,
		cfg.RAG.MaxRetries, requestTimeout,
	)
	llm := llms.NewOpenAILLM(
		cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.BaseURL, cfg.LLM.OpenAI.Model,
		cfg.RAG.MaxRetries, requestTimeout,
	)

	// Pipelines and orchestrator
	indexing := pipeline.NewIndexingPipeline(
		loaders.NewPdfExtractor(),
		splitters.NewWordSplitter(cfg.RAG.ChunkSize),
		embedder, vectorStore, appLogger,
	)
	retrieval := pipeline.NewRetrievalPipeline(embedder, vectorStore, appLogger)
	qa := pipeline.NewQAPipeline(llm, appLogger)

	svc := service.New(appLogger, documentDAL, files, vectorStore,
		indexing, retrieval, qa, cache, events, cfg.RAG.TopK, cacheTTL)

	handler := api.NewHandler(svc, appLogger, health)
	router, err := api.SetupRouter(handler, cfg)
	if err != nil {
		log.Fatalf("Failed to set up router: %v", err)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		appLogger.Info(fmt.Sprintf("HTTP server listening at %s", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	shutdownTimeout, err := time.ParseDuration(cfg.Server.ShutdownTimeout)
	if err != nil {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithErr(err).Error("Forced shutdown")
	}

	if err := mysql.Close(); err != nil {
		appLogger.WithErr(err).Warn("Failed to close MySQL connection")
	}
	appLogger.Info("Server gracefully stopped")
}
