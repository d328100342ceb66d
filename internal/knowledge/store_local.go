package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/EkarshaSumajK/Knowledge-Base-Search/internal/errors"
	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/logger"
)

// LocalStoreOptions 本地持久化存储配置
type LocalStoreOptions struct {
	// Path 持久化文件路径，JSON数组，每条记录 {id, text, embedding, metadata}
	Path string
}

// localVectorStore 本地JSON文件持久化的线性扫描向量存储。
//
// 每次变更把全量集合写回文件，每次读取前先从文件重载，
// 以便多个进程实例共享同一份持久化文件时读到最新写入。
// 注意：两个并发写者会各自基于相同快照做读-改-写，后写者覆盖前写者
// （lost update）。进程内用互斥锁串行化变更；跨进程的竞争保持原样。
type localVectorStore struct {
	path     string
	embedder Embedder
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewLocalVectorStore 创建本地持久化向量存储
func NewLocalVectorStore(opts LocalStoreOptions, embedder Embedder) (VectorStore, error) {
	if opts.Path == "" {
		opts.Path = "./vector-store.json"
	}
	if embedder == nil {
		embedder = &NoopEmbedder{}
	}

	if dir := filepath.Dir(opts.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.NewStoreIOError("init", err)
		}
	}

	return &localVectorStore{
		path:     opts.Path,
		embedder: embedder,
		logger:   logger.GetLogger(),
	}, nil
}

// load 从文件读取全量集合；文件缺失或损坏视为空库
func (s *localVectorStore) load() []StoredVector {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read vector store file, treating as empty",
				zap.String("path", s.path), zap.Error(err))
		}
		return nil
	}

	var records []StoredVector
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("failed to parse vector store file, treating as empty",
			zap.String("path", s.path), zap.Error(err))
		return nil
	}
	return records
}

// save 全量写回文件，先写临时文件再rename，避免写一半被读到
func (s *localVectorStore) save(records []StoredVector) error {
	if records == nil {
		records = []StoredVector{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return apperrors.NewStoreIOError("encode", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperrors.NewStoreIOError("write", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return apperrors.NewStoreIOError("write", err)
	}

	s.logger.Debug("saved vector store to disk",
		zap.String("path", s.path), zap.Int("documents", len(records)))
	return nil
}

func (s *localVectorStore) Add(ctx context.Context, documents []Document) error {
	if len(documents) == 0 {
		return nil
	}

	// 先完成全部向量化再落盘：embedding失败时不产生部分写入
	texts := make([]string, len(documents))
	for i, doc := range documents {
		texts[i] = doc.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(embeddings) != len(documents) {
		return apperrors.NewEmbeddingProviderError(
			fmt.Errorf("expected %d embeddings, got %d", len(documents), len(embeddings)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	for i, doc := range documents {
		records = append(records, StoredVector{
			ID:        doc.ID,
			Text:      doc.Text,
			Embedding: embeddings[i],
			Metadata:  doc.Metadata,
		})
	}

	if err := s.save(records); err != nil {
		return err
	}

	s.logger.Info("added documents to vector store",
		zap.Int("added", len(documents)), zap.Int("total", len(records)))
	return nil
}

func (s *localVectorStore) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	// 读前重载，保证读到其他进程实例的最新写入
	records := s.load()
	if len(records) == 0 {
		return []SearchResult{}, nil
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	ranked, err := Rank(embedding, records, topK)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(ranked))
	for _, item := range ranked {
		results = append(results, SearchResult{
			Text:     item.Vector.Text,
			Metadata: item.Vector.Metadata,
			Distance: item.Distance,
		})
	}
	return results, nil
}

func (s *localVectorStore) Stats(ctx context.Context) (*StoreStats, error) {
	records := s.load()

	summaries := make([]DocumentSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, DocumentSummary{
			ID:          record.ID,
			TextPreview: previewText(record.Text),
			Metadata:    record.Metadata,
		})
	}

	return &StoreStats{
		DocumentCount: len(records),
		Documents:     summaries,
	}, nil
}

func (s *localVectorStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(nil)
}

func (s *localVectorStore) DeleteByFilename(ctx context.Context, filename string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	kept := make([]StoredVector, 0, len(records))
	for _, record := range records {
		if metadataFilename(record.Metadata) == filename {
			continue
		}
		kept = append(kept, record)
	}

	deleted := len(records) - len(kept)
	if deleted == 0 {
		return 0, nil
	}

	if err := s.save(kept); err != nil {
		return 0, err
	}

	s.logger.Info("deleted documents by filename",
		zap.String("filename", filename), zap.Int("deleted", deleted))
	return deleted, nil
}

func (s *localVectorStore) Ready() bool {
	return s.embedder != nil && s.embedder.Ready()
}
