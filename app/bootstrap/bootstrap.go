package bootstrap

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/config"
	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/knowledge"
	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/logger"
	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/services"
)

// App 持有全部共享服务与需要在退出时清理的资源
type App struct {
	Retrieval *services.RetrievalService
	Chat      *services.ChatService
	Metrics   *services.MetricsService
}

// Global app instance for controllers to access
var globalApp *App

// GetApp returns the global app instance
func GetApp() *App {
	return globalApp
}

// Init bootstraps configuration, logger and the retrieval services
// required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	if err := config.LoadConfig(); err != nil {
		return nil, err
	}
	cfg := config.AppConfig

	embedder := knowledge.NewOpenAIEmbedder(
		cfg.AI.OpenAIAPIKey,
		cfg.AI.EmbeddingModel,
		cfg.Knowledge.Embedding.MaxBatch,
	)
	if !embedder.Ready() {
		logger.Warn("no embedding provider configured, uploads and search will fail")
	}

	store, err := buildVectorStore(cfg, embedder)
	if err != nil {
		return nil, err
	}

	parser := knowledge.NewFileParserManager()
	chunker := knowledge.NewChunker(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)

	retrieval := services.NewRetrievalService(parser, chunker, store, cfg.Knowledge.TopK)
	chat := services.NewChatService(retrieval)

	app := &App{
		Retrieval: retrieval,
		Chat:      chat,
		Metrics:   services.NewMetricsService(),
	}
	globalApp = app

	logger.Info("application bootstrapped",
		zap.String("vector_store", cfg.Knowledge.VectorStore.Provider),
		zap.Int("chunk_size", cfg.Knowledge.ChunkSize),
		zap.Int("chunk_overlap", cfg.Knowledge.ChunkOverlap))
	return app, nil
}

// buildVectorStore 按配置选择向量存储的后端实现
func buildVectorStore(cfg *config.Config, embedder knowledge.Embedder) (knowledge.VectorStore, error) {
	switch cfg.Knowledge.VectorStore.Provider {
	case "milvus":
		milvusCfg := cfg.Knowledge.VectorStore.Milvus
		return knowledge.NewMilvusVectorStore(knowledge.MilvusOptions{
			Address:    milvusCfg.Address,
			Username:   milvusCfg.Username,
			Password:   milvusCfg.Password,
			Collection: milvusCfg.Collection,
			Database:   milvusCfg.Database,
			VectorSize: milvusCfg.VectorSize,
			UseTLS:     milvusCfg.TLS,
		}, embedder)
	case "local", "":
		return knowledge.NewLocalVectorStore(knowledge.LocalStoreOptions{
			Path: cfg.Knowledge.VectorStore.Local.Path,
		}, embedder)
	default:
		return nil, fmt.Errorf("unknown vector store provider: %s", cfg.Knowledge.VectorStore.Provider)
	}
}

// Shutdown 释放资源
func (a *App) Shutdown() {
	logger.Sync()
}
