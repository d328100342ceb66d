package knowledge

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/EkarshaSumajK/Knowledge-Base-Search/internal/errors"
)

// defaultEmbeddingBatchSize 单次embedding请求的最大输入条数（服务商限制）
const defaultEmbeddingBatchSize = 100

// Embedder 定义文本向量化接口
type Embedder interface {
	// Embed 向量化单条文本（查询场景，不走批量）
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch 按输入顺序向量化一组文本；任一批次失败则整体失败，
	// 调用方不会观察到部分成功的结果
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Ready() bool
}

// NoopEmbedder 默认占位实现
type NoopEmbedder struct{}

func (n *NoopEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, apperrors.NewEmbeddingProviderError(errors.New("embedding provider not configured"))
}

func (n *NoopEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, apperrors.NewEmbeddingProviderError(errors.New("embedding provider not configured"))
}

func (n *NoopEmbedder) Dimensions() int {
	return 0
}

func (n *NoopEmbedder) Ready() bool {
	return false
}

var embeddingDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder 使用OpenAI Embedding API
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	maxBatch   int
}

// NewOpenAIEmbedder 创建OpenAI嵌入向量生成器；apiKey为空时返回NoopEmbedder
func NewOpenAIEmbedder(apiKey, model string, maxBatch int) Embedder {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return &NoopEmbedder{}
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if maxBatch <= 0 {
		maxBatch = defaultEmbeddingBatchSize
	}

	client := openai.NewClient(apiKey)
	dims, ok := embeddingDimensions[model]
	if !ok {
		dims = 1536
	}

	return &OpenAIEmbedder{
		client:     client,
		model:      model,
		dimensions: dims,
		maxBatch:   maxBatch,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewEmbeddingProviderError(errors.New("text is empty"))
	}

	vectors, err := e.embedSlice(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// 先切好全部批次再依次调用；任一批次失败立即返回错误，
	// 不保留已完成批次的结果
	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.maxBatch {
		end := start + e.maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := e.embedSlice(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}
	return all, nil
}

// embedSlice 执行一次embedding请求，返回与输入同序的向量
func (e *OpenAIEmbedder) embedSlice(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, apperrors.NewEmbeddingProviderError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, apperrors.NewEmbeddingProviderError(errors.New("embedding response size mismatch"))
	}

	// 按Index归位，响应顺序不做假设
	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, apperrors.NewEmbeddingProviderError(errors.New("embedding response index out of range"))
		}
		embedding := make([]float32, len(item.Embedding))
		copy(embedding, item.Embedding)
		vectors[item.Index] = embedding
	}
	for _, v := range vectors {
		if v == nil {
			return nil, apperrors.NewEmbeddingProviderError(errors.New("embedding response missing input"))
		}
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedder) Ready() bool {
	return e.client != nil
}
