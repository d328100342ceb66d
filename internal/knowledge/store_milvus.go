package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	apperrors "github.com/EkarshaSumajK/Knowledge-Base-Search/internal/errors"
	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/logger"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address    string
	Username   string
	Password   string
	Collection string
	Database   string
	VectorSize int
	UseTLS     bool
	Timeout    time.Duration
}

// milvusVectorStore 委托外部向量数据库做存储与相似度检索的实现。
// 所有向量由本服务预先算好后写入，Milvus侧不做任何embedding。
type milvusVectorStore struct {
	milvusClient client.Client
	embedder     Embedder
	collection   string
	vectorSize   int
	timeout      time.Duration
	logger       *zap.Logger
}

// NewMilvusVectorStore 创建Milvus向量存储
func NewMilvusVectorStore(opts MilvusOptions, embedder Embedder) (VectorStore, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.Collection == "" {
		opts.Collection = "kb_vectors"
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = 1536
	}
	if opts.Database == "" {
		opts.Database = "default"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if embedder == nil {
		embedder = &NoopEmbedder{}
	}

	milvusClient, err := client.NewClient(
		context.Background(),
		client.Config{
			Address:       opts.Address,
			DBName:        opts.Database,
			Username:      opts.Username,
			Password:      opts.Password,
			EnableTLSAuth: opts.UseTLS,
		},
	)
	if err != nil {
		return nil, apperrors.NewExternalIndexError("connect", err)
	}

	return &milvusVectorStore{
		milvusClient: milvusClient,
		embedder:     embedder,
		collection:   opts.Collection,
		vectorSize:   opts.VectorSize,
		timeout:      opts.Timeout,
		logger:       logger.GetLogger(),
	}, nil
}

func (s *milvusVectorStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *milvusVectorStore) ensureCollection(ctx context.Context) error {
	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return apperrors.NewExternalIndexError("check collection", err)
	}

	if !hasCollection {
		schema := &entity.Schema{
			CollectionName: s.collection,
			Description:    "knowledge base document chunks",
			Fields: []*entity.Field{
				{
					Name:       "id",
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					AutoID:     false,
					TypeParams: map[string]string{
						"max_length": "512",
					},
				},
				{
					Name:     "filename",
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": "512",
					},
				},
				{
					Name:     "content",
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": "65535",
					},
				},
				{
					Name:     "metadata",
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": "65535",
					},
				},
				{
					Name:     "vector",
					DataType: entity.FieldTypeFloatVector,
					TypeParams: map[string]string{
						"dim": fmt.Sprintf("%d", s.vectorSize),
					},
				},
			},
		}

		if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return apperrors.NewExternalIndexError("create collection", err)
		}

		// 余弦度量的HNSW索引，失败时退回IVF_FLAT
		var index entity.Index
		var indexErr error
		index, indexErr = entity.NewIndexHNSW(entity.COSINE, 8, 64)
		if indexErr != nil {
			index, indexErr = entity.NewIndexIvfFlat(entity.COSINE, 128)
			if indexErr != nil {
				return apperrors.NewExternalIndexError("create index", indexErr)
			}
		}
		if err := s.milvusClient.CreateIndex(ctx, s.collection, "vector", index, false); err != nil {
			// 索引创建失败不影响写入，检索会退化为暴力扫描
			s.logger.Warn("failed to create milvus index",
				zap.String("collection", s.collection), zap.Error(err))
		}
	}

	if err := s.milvusClient.LoadCollection(ctx, s.collection, false); err != nil {
		s.logger.Warn("failed to load milvus collection",
			zap.String("collection", s.collection), zap.Error(err))
	}

	return nil
}

func (s *milvusVectorStore) Add(ctx context.Context, documents []Document) error {
	if len(documents) == 0 {
		return nil
	}
	// Milvus侧的embedding函数永远不应被触发；本服务未配置embedding
	// 服务商却尝试写入，属于配置缺陷，立即报错
	if !s.embedder.Ready() {
		return apperrors.NewEmbeddingProviderError(
			errors.New("no embedding provider configured for external index"))
	}

	texts := make([]string, len(documents))
	for i, doc := range documents {
		texts[i] = doc.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	ids := make([]string, len(documents))
	filenames := make([]string, len(documents))
	contents := make([]string, len(documents))
	metadatas := make([]string, len(documents))
	vectors := make([][]float32, len(documents))
	for i, doc := range documents {
		ids[i] = doc.ID
		filenames[i] = metadataFilename(doc.Metadata)
		contents[i] = doc.Text
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return apperrors.NewExternalIndexError("encode metadata", err)
		}
		metadatas[i] = string(metadataJSON)
		vectors[i] = embeddings[i]
	}

	// 一次批量写入 (ids, embeddings, texts, metadatas)
	_, err = s.milvusClient.Insert(ctx, s.collection, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnVarChar("filename", filenames),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnVarChar("metadata", metadatas),
		entity.NewColumnFloatVector("vector", s.vectorSize, vectors),
	)
	if err != nil {
		return apperrors.NewExternalIndexError("insert", err)
	}

	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		s.logger.Warn("failed to flush milvus collection",
			zap.String("collection", s.collection), zap.Error(err))
	}

	s.logger.Info("added documents to milvus",
		zap.String("collection", s.collection), zap.Int("added", len(documents)))
	return nil
}

func (s *milvusVectorStore) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.ensureCollection(ctx); err != nil {
		// 检索失败降级为空结果：没有上下文的回答好过整轮对话失败
		s.logger.Warn("milvus search degraded to empty result", zap.Error(err))
		return []SearchResult{}, nil
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	searchResults, err := s.milvusClient.Search(
		ctx,
		s.collection,
		[]string{},
		"",
		[]string{"content", "metadata"},
		[]entity.Vector{entity.FloatVector(embedding)},
		"vector",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		s.logger.Warn("milvus search degraded to empty result", zap.Error(err))
		return []SearchResult{}, nil
	}
	if len(searchResults) == 0 {
		return []SearchResult{}, nil
	}

	result := searchResults[0]
	if result.Err != nil {
		s.logger.Warn("milvus search degraded to empty result", zap.Error(result.Err))
		return []SearchResult{}, nil
	}
	if result.ResultCount == 0 {
		return []SearchResult{}, nil
	}

	var contents []string
	var metadatas []string
	for _, field := range result.Fields {
		switch field.Name() {
		case "content":
			if col, ok := field.(*entity.ColumnVarChar); ok {
				contents = col.Data()
			}
		case "metadata":
			if col, ok := field.(*entity.ColumnVarChar); ok {
				metadatas = col.Data()
			}
		}
	}

	results := make([]SearchResult, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		content := ""
		if i < len(contents) {
			content = contents[i]
		}

		var metadata map[string]interface{}
		if i < len(metadatas) && metadatas[i] != "" {
			_ = json.Unmarshal([]byte(metadatas[i]), &metadata)
		}

		// COSINE度量下score为相似度，转为距离
		distance := 1.0
		if i < len(result.Scores) {
			distance = 1 - float64(result.Scores[i])
		}

		results = append(results, SearchResult{
			Text:     content,
			Metadata: metadata,
			Distance: distance,
		})
	}

	return results, nil
}

func (s *milvusVectorStore) Stats(ctx context.Context) (*StoreStats, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	resultSet, err := s.milvusClient.Query(ctx, s.collection, nil,
		`id != ""`, []string{"id", "content", "metadata"})
	if err != nil {
		return nil, apperrors.NewExternalIndexError("query", err)
	}

	var ids, contents, metadatas []string
	for _, column := range resultSet {
		switch column.Name() {
		case "id":
			if col, ok := column.(*entity.ColumnVarChar); ok {
				ids = col.Data()
			}
		case "content":
			if col, ok := column.(*entity.ColumnVarChar); ok {
				contents = col.Data()
			}
		case "metadata":
			if col, ok := column.(*entity.ColumnVarChar); ok {
				metadatas = col.Data()
			}
		}
	}

	summaries := make([]DocumentSummary, 0, len(ids))
	for i, id := range ids {
		content := ""
		if i < len(contents) {
			content = contents[i]
		}
		var metadata map[string]interface{}
		if i < len(metadatas) && metadatas[i] != "" {
			_ = json.Unmarshal([]byte(metadatas[i]), &metadata)
		}
		summaries = append(summaries, DocumentSummary{
			ID:          id,
			TextPreview: previewText(content),
			Metadata:    metadata,
		})
	}

	return &StoreStats{
		DocumentCount: len(summaries),
		Documents:     summaries,
	}, nil
}

func (s *milvusVectorStore) Clear(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return apperrors.NewExternalIndexError("check collection", err)
	}
	if hasCollection {
		if err := s.milvusClient.DropCollection(ctx, s.collection); err != nil {
			return apperrors.NewExternalIndexError("drop collection", err)
		}
	}

	// 重建空集合
	return s.ensureCollection(ctx)
}

func (s *milvusVectorStore) DeleteByFilename(ctx context.Context, filename string) (int, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.ensureCollection(ctx); err != nil {
		return 0, err
	}

	// 先查出该文件名下的全部ID，再按ID列表批量删除。
	// 批量删除失败不自动重试：重试前必须重新查询当前状态
	expr := fmt.Sprintf(`filename == "%s"`, escapeExprString(filename))
	resultSet, err := s.milvusClient.Query(ctx, s.collection, nil, expr, []string{"id"})
	if err != nil {
		return 0, apperrors.NewExternalIndexError("query", err)
	}

	var ids []string
	for _, column := range resultSet {
		if column.Name() == "id" {
			if col, ok := column.(*entity.ColumnVarChar); ok {
				ids = col.Data()
			}
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf(`"%s"`, escapeExprString(id))
	}
	deleteExpr := fmt.Sprintf("id in [%s]", strings.Join(quoted, ", "))
	if err := s.milvusClient.Delete(ctx, s.collection, "", deleteExpr); err != nil {
		return 0, apperrors.NewExternalIndexError("delete", err)
	}

	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		s.logger.Warn("failed to flush after delete", zap.Error(err))
	}

	s.logger.Info("deleted documents from milvus",
		zap.String("filename", filename), zap.Int("deleted", len(ids)))
	return len(ids), nil
}

func (s *milvusVectorStore) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}

// escapeExprString 转义布尔表达式中的字符串字面量
func escapeExprString(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `"`, `\"`)
}
