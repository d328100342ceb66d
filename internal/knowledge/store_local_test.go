package knowledge

import (
	"context"
	"errors"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/EkarshaSumajK/Knowledge-Base-Search/internal/errors"
)

// fakeVectorFor 确定性测试向量：相同文本产生相同向量，
// 不同文本的向量方向差异足够大，保证距离排序可断言
func fakeVectorFor(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	sum := h.Sum64()

	vec := make([]float32, 8)
	for i := range vec {
		vec[i] = float32((sum>>(uint(i)*8))&0xff) + 1
	}
	return vec
}

type fakeEmbedder struct {
	failBatch bool
	failQuery bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.failQuery {
		return nil, apperrors.NewEmbeddingProviderError(errors.New("embed failed"))
	}
	return fakeVectorFor(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.failBatch {
		return nil, apperrors.NewEmbeddingProviderError(errors.New("batch failed"))
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = fakeVectorFor(text)
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimensions() int { return 8 }
func (f *fakeEmbedder) Ready() bool     { return true }

func newTestLocalStore(t *testing.T) (VectorStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vector-store.json")
	store, err := NewLocalVectorStore(LocalStoreOptions{Path: path}, &fakeEmbedder{})
	require.NoError(t, err)
	return store, path
}

func docWithFilename(id, text, filename string) Document {
	return Document{
		ID:   id,
		Text: text,
		Metadata: map[string]interface{}{
			"filename": filename,
			"fileType": "text/plain",
		},
	}
}

func TestLocalStoreAddAndSearch(t *testing.T) {
	store, path := newTestLocalStore(t)
	ctx := context.Background()

	docs := []Document{
		docWithFilename("a.txt-1-0", "golang concurrency patterns", "a.txt"),
		docWithFilename("a.txt-1-1", "vector similarity search", "a.txt"),
		docWithFilename("b.txt-2-0", "cooking pasta at home", "b.txt"),
	}
	require.NoError(t, store.Add(ctx, docs))

	// 文件已持久化
	_, err := os.Stat(path)
	require.NoError(t, err)

	results, err := store.Search(ctx, "vector similarity search", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// 与查询完全一致的文本距离为0且排第一
	assert.Equal(t, "vector similarity search", results[0].Text)
	assert.InDelta(t, 0, results[0].Distance, 1e-5)
	assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
	assert.Equal(t, "a.txt", results[0].Metadata["filename"])
}

func TestLocalStoreSearchEmpty(t *testing.T) {
	store, _ := newTestLocalStore(t)

	results, err := store.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestLocalStoreAddEmptyIsNoop(t *testing.T) {
	store, path := newTestLocalStore(t)

	require.NoError(t, store.Add(context.Background(), nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStoreAddEmbeddingFailureLeavesStoreUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vector-store.json")
	store, err := NewLocalVectorStore(LocalStoreOptions{Path: path}, &fakeEmbedder{failBatch: true})
	require.NoError(t, err)

	err = store.Add(context.Background(), []Document{docWithFilename("x-1-0", "text", "x.txt")})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEmbeddingProvider))

	// 失败时不落盘
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalStoreStats(t *testing.T) {
	store, _ := newTestLocalStore(t)
	ctx := context.Background()

	longText := strings.Repeat("长文本内容", 30) // 150 runes
	require.NoError(t, store.Add(ctx, []Document{
		docWithFilename("a-1-0", longText, "a.txt"),
		docWithFilename("a-1-1", "short", "a.txt"),
	}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentCount)
	require.Len(t, stats.Documents, 2)

	// 摘要截取前100字符并追加省略号
	preview := stats.Documents[0].TextPreview
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.Len(t, []rune(preview), 103)
	assert.Equal(t, "short...", stats.Documents[1].TextPreview)
}

func TestLocalStoreDeleteByFilename(t *testing.T) {
	store, _ := newTestLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []Document{
		docWithFilename("a-1-0", "first", "a.txt"),
		docWithFilename("a-1-1", "second", "a.txt"),
		docWithFilename("b-2-0", "third", "b.txt"),
	}))

	deleted, err := store.DeleteByFilename(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
	assert.Equal(t, "b.txt", stats.Documents[0].Metadata["filename"])

	// 无匹配返回0而非错误
	deleted, err = store.DeleteByFilename(ctx, "missing.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestLocalStoreClear(t *testing.T) {
	store, _ := newTestLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []Document{docWithFilename("a-1-0", "text", "a.txt")}))
	require.NoError(t, store.Clear(ctx))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentCount)

	// 幂等：空库清空不报错
	require.NoError(t, store.Clear(ctx))
}

func TestLocalStoreReloadAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vector-store.json")
	embedder := &fakeEmbedder{}
	ctx := context.Background()

	writer, err := NewLocalVectorStore(LocalStoreOptions{Path: path}, embedder)
	require.NoError(t, err)
	reader, err := NewLocalVectorStore(LocalStoreOptions{Path: path}, embedder)
	require.NoError(t, err)

	// reader先于写入创建，靠读前重载看到writer的数据
	require.NoError(t, writer.Add(ctx, []Document{docWithFilename("a-1-0", "shared state", "a.txt")}))

	results, err := reader.Search(ctx, "shared state", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "shared state", results[0].Text)

	stats, err := reader.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
}

func TestLocalStoreCorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vector-store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := NewLocalVectorStore(LocalStoreOptions{Path: path}, &fakeEmbedder{})
	require.NoError(t, err)

	results, err := store.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLocalStoreSearchQueryEmbedFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vector-store.json")
	ok := &fakeEmbedder{}
	store, err := NewLocalVectorStore(LocalStoreOptions{Path: path}, ok)
	require.NoError(t, err)
	require.NoError(t, store.Add(context.Background(), []Document{docWithFilename("a-1-0", "text", "a.txt")}))

	failing, err := NewLocalVectorStore(LocalStoreOptions{Path: path}, &fakeEmbedder{failQuery: true})
	require.NoError(t, err)

	_, err = failing.Search(context.Background(), "text", 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEmbeddingProvider))
}
