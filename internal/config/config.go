package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	AI         AIConfig
	Knowledge  KnowledgeConfig
	FileUpload FileUploadConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type AIConfig struct {
	OpenAIAPIKey   string
	ChatModel      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float64
}

type KnowledgeConfig struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	Embedding    EmbeddingConfig
	VectorStore  VectorStoreConfig
}

type EmbeddingConfig struct {
	MaxBatch int
}

type VectorStoreConfig struct {
	Provider string // local | milvus
	Local    LocalStoreConfig
	Milvus   MilvusConfig
}

type LocalStoreConfig struct {
	Path string
}

type MilvusConfig struct {
	Address    string
	Username   string
	Password   string
	Collection string
	Database   string
	TLS        bool
	VectorSize int
}

type FileUploadConfig struct {
	MaxSize      int64
	AllowedTypes []string
}

var AppConfig *Config

func LoadConfig() error {
	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.env", "development")

	// AI配置默认值
	viper.SetDefault("ai.chat_model", "gpt-4o-mini")
	viper.SetDefault("ai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("ai.max_tokens", 4096)
	viper.SetDefault("ai.temperature", 0.0)

	// 知识库配置默认值
	viper.SetDefault("knowledge.chunk_size", 1000)
	viper.SetDefault("knowledge.chunk_overlap", 200)
	viper.SetDefault("knowledge.top_k", 5)
	viper.SetDefault("knowledge.embedding.max_batch", 100)
	viper.SetDefault("knowledge.vector_store.provider", "local")
	viper.SetDefault("knowledge.vector_store.local.path", "./vector-store.json")
	viper.SetDefault("knowledge.vector_store.milvus.address", "localhost:19530")
	viper.SetDefault("knowledge.vector_store.milvus.collection", "kb_vectors")
	viper.SetDefault("knowledge.vector_store.milvus.database", "default")
	viper.SetDefault("knowledge.vector_store.milvus.tls", false)
	viper.SetDefault("knowledge.vector_store.milvus.vector_size", 1536)

	// 文件上传配置默认值
	viper.SetDefault("file_upload.max_size", 15728640) // 15MB
	viper.SetDefault("file_upload.allowed_types", []string{".pdf", ".docx", ".txt", ".md"})

	// 读取环境变量
	viper.SetEnvPrefix("KBS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 兼容常用环境变量
	if port := os.Getenv("PORT"); port != "" {
		viper.Set("server.port", port)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		viper.Set("ai.openai_api_key", key)
	}
	if path := os.Getenv("VECTOR_STORE_PATH"); path != "" {
		viper.Set("knowledge.vector_store.local.path", path)
	}
	if addr := os.Getenv("MILVUS_ADDRESS"); addr != "" {
		viper.Set("knowledge.vector_store.milvus.address", addr)
		viper.Set("knowledge.vector_store.provider", "milvus")
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		AI: AIConfig{
			OpenAIAPIKey:   viper.GetString("ai.openai_api_key"),
			ChatModel:      viper.GetString("ai.chat_model"),
			EmbeddingModel: viper.GetString("ai.embedding_model"),
			MaxTokens:      viper.GetInt("ai.max_tokens"),
			Temperature:    viper.GetFloat64("ai.temperature"),
		},
		Knowledge: KnowledgeConfig{
			ChunkSize:    viper.GetInt("knowledge.chunk_size"),
			ChunkOverlap: viper.GetInt("knowledge.chunk_overlap"),
			TopK:         viper.GetInt("knowledge.top_k"),
			Embedding: EmbeddingConfig{
				MaxBatch: viper.GetInt("knowledge.embedding.max_batch"),
			},
			VectorStore: VectorStoreConfig{
				Provider: viper.GetString("knowledge.vector_store.provider"),
				Local: LocalStoreConfig{
					Path: viper.GetString("knowledge.vector_store.local.path"),
				},
				Milvus: MilvusConfig{
					Address:    viper.GetString("knowledge.vector_store.milvus.address"),
					Username:   viper.GetString("knowledge.vector_store.milvus.username"),
					Password:   viper.GetString("knowledge.vector_store.milvus.password"),
					Collection: viper.GetString("knowledge.vector_store.milvus.collection"),
					Database:   viper.GetString("knowledge.vector_store.milvus.database"),
					TLS:        viper.GetBool("knowledge.vector_store.milvus.tls"),
					VectorSize: viper.GetInt("knowledge.vector_store.milvus.vector_size"),
				},
			},
		},
		FileUpload: FileUploadConfig{
			MaxSize:      viper.GetInt64("file_upload.max_size"),
			AllowedTypes: viper.GetStringSlice("file_upload.allowed_types"),
		},
	}

	return nil
}

// GetAppConfig 获取应用配置，未加载时返回默认配置
func GetAppConfig() *Config {
	if AppConfig == nil {
		_ = LoadConfig()
	}
	return AppConfig
}
