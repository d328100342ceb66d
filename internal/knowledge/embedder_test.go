package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/EkarshaSumajK/Knowledge-Base-Search/internal/errors"
)

// testVectorFor 测试桩和断言共用的确定性向量
func testVectorFor(text string) []float32 {
	var sum float32
	for _, b := range []byte(text) {
		sum += float32(b)
	}
	return []float32{sum, float32(len(text)), 1}
}

type embeddingStub struct {
	calls      atomic.Int32
	failAtCall int32 // 0表示不注入失败
}

func (s *embeddingStub) handler(w http.ResponseWriter, r *http.Request) {
	call := s.calls.Add(1)
	if s.failAtCall != 0 && call >= s.failAtCall {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
		return
	}

	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	type item struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	}
	data := make([]item, 0, len(req.Input))
	// 故意倒序返回，验证调用方按index归位
	for i := len(req.Input) - 1; i >= 0; i-- {
		data = append(data, item{Object: "embedding", Index: i, Embedding: testVectorFor(req.Input[i])})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   data,
		"model":  req.Model,
		"usage":  map[string]int{"prompt_tokens": 0, "total_tokens": 0},
	})
}

func newStubEmbedder(t *testing.T, stub *embeddingStub, maxBatch int) *OpenAIEmbedder {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(stub.handler))
	t.Cleanup(server.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      "text-embedding-3-small",
		dimensions: 1536,
		maxBatch:   maxBatch,
	}
}

func TestOpenAIEmbedderBatchSlicing(t *testing.T) {
	stub := &embeddingStub{}
	embedder := newStubEmbedder(t, stub, 3)

	texts := make([]string, 8)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk-%02d", i)
	}

	vectors, err := embedder.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 8)

	// ceil(8/3) = 3 次请求
	assert.Equal(t, int32(3), stub.calls.Load())

	// 向量与输入一一对应且顺序一致（服务端故意倒序返回）
	for i, text := range texts {
		assert.Equal(t, testVectorFor(text), vectors[i], "vector %d", i)
	}
}

func TestOpenAIEmbedderSingleBatch(t *testing.T) {
	stub := &embeddingStub{}
	embedder := newStubEmbedder(t, stub, 100)

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestOpenAIEmbedderBatchFailureIsAtomic(t *testing.T) {
	stub := &embeddingStub{failAtCall: 2}
	embedder := newStubEmbedder(t, stub, 2)

	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := embedder.EmbedBatch(context.Background(), texts)
	require.Error(t, err)
	// 第一批成功，第二批失败：结果整体为空，不暴露部分向量
	assert.Nil(t, vectors)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEmbeddingProvider))
}

func TestOpenAIEmbedderEmptyInputs(t *testing.T) {
	stub := &embeddingStub{}
	embedder := newStubEmbedder(t, stub, 100)

	vectors, err := embedder.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Equal(t, int32(0), stub.calls.Load())

	_, err = embedder.Embed(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEmbeddingProvider))
}

func TestOpenAIEmbedderSingleEmbed(t *testing.T) {
	stub := &embeddingStub{}
	embedder := newStubEmbedder(t, stub, 100)

	vector, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, testVectorFor("hello"), vector)
}

func TestNewOpenAIEmbedderWithoutKey(t *testing.T) {
	embedder := NewOpenAIEmbedder("", "text-embedding-3-small", 100)
	assert.False(t, embedder.Ready())

	_, err := embedder.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEmbeddingProvider))
}
