package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/knowledge"
	"github.com/EkarshaSumajK/Knowledge-Base-Search/internal/logger"
)

// contextSeparator 上下文块之间的分隔符
const contextSeparator = "\n\n---\n\n"

// FileUploadResult 单个文件的处理结果
type FileUploadResult struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
	Error    string `json:"error,omitempty"`
}

// Source 检索结果归属的来源文件
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// RetrievedContext 一次检索的产物：拼好的上下文块与去重后的来源列表
type RetrievedContext struct {
	Context string                   `json:"context"`
	Sources []Source                 `json:"sources"`
	Results []knowledge.SearchResult `json:"results"`
}

// RetrievalService 检索编排：上传侧驱动解析-分块-向量化-入库，
// 查询侧驱动检索并格式化上下文
type RetrievalService struct {
	parser  *knowledge.FileParserManager
	chunker *knowledge.Chunker
	store   knowledge.VectorStore
	topK    int
	logger  *zap.Logger
}

// NewRetrievalService 创建检索编排服务
func NewRetrievalService(parser *knowledge.FileParserManager, chunker *knowledge.Chunker, store knowledge.VectorStore, topK int) *RetrievalService {
	if topK <= 0 {
		topK = 5
	}
	return &RetrievalService{
		parser:  parser,
		chunker: chunker,
		store:   store,
		topK:    topK,
		logger:  logger.GetLogger(),
	}
}

// Store 返回底层向量存储
func (s *RetrievalService) Store() knowledge.VectorStore {
	return s.store
}

// UploadFiles 逐个处理上传文件；单个文件失败不影响其余文件，
// 每个文件的结果独立上报
func (s *RetrievalService) UploadFiles(ctx context.Context, files []*multipart.FileHeader) []FileUploadResult {
	results := make([]FileUploadResult, 0, len(files))
	for _, fileHeader := range files {
		result := FileUploadResult{Filename: fileHeader.Filename}

		file, err := fileHeader.Open()
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		chunks, err := s.ProcessFile(ctx, file, fileHeader.Filename, fileHeader.Size)
		file.Close()
		if err != nil {
			s.logger.Error("file processing failed",
				zap.String("filename", fileHeader.Filename), zap.Error(err))
			result.Error = err.Error()
		} else {
			result.Chunks = chunks
		}
		results = append(results, result)
	}
	return results
}

// ProcessFile 处理单个文件：解析文本、分块、构造文档并入库，
// 返回生成的chunk数量
func (s *RetrievalService) ProcessFile(ctx context.Context, reader io.Reader, filename string, size int64) (int, error) {
	parsed, err := s.parser.ParseFile(reader, filename, size)
	if err != nil {
		return 0, err
	}
	s.logger.Info("📄 extracted document text",
		zap.String("filename", filename),
		zap.Int("characters", len(parsed.Text)))

	chunks := s.chunker.Split(parsed.Text)
	if len(chunks) == 0 {
		return 0, nil
	}

	// chunk id = 文件名 + 上传时间戳 + 序号，全局唯一
	now := time.Now().UnixMilli()
	documents := make([]knowledge.Document, len(chunks))
	for i, chunk := range chunks {
		metadata := make(map[string]interface{}, len(parsed.Metadata)+2)
		for k, v := range parsed.Metadata {
			metadata[k] = v
		}
		metadata["chunkIndex"] = i
		metadata["totalChunks"] = len(chunks)

		documents[i] = knowledge.Document{
			ID:       fmt.Sprintf("%s-%d-%d", filename, now, i),
			Text:     chunk,
			Metadata: metadata,
		}
	}

	if err := s.store.Add(ctx, documents); err != nil {
		return 0, err
	}

	documentsUploadedTotal.Inc()
	chunksIndexedTotal.Add(float64(len(chunks)))

	s.logger.Info("✅ documents added to vector store",
		zap.String("filename", filename), zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// Retrieve 向量化查询并取topK，拼装上下文块与来源列表。
// 存储侧失败降级为空上下文，绝不让整轮对话失败
func (s *RetrievalService) Retrieve(ctx context.Context, query string) *RetrievedContext {
	start := time.Now()
	results, err := s.store.Search(ctx, query, s.topK)
	searchDurationSeconds.Observe(time.Since(start).Seconds())
	searchesTotal.Inc()

	if err != nil {
		s.logger.Warn("retrieval failed, answering without context",
			zap.String("query", query), zap.Error(err))
		return &RetrievedContext{}
	}
	if len(results) == 0 {
		s.logger.Info("⚠️ no documents found in vector store")
		return &RetrievedContext{}
	}

	s.logger.Info("🔍 retrieved context",
		zap.Int("results", len(results)),
		zap.Float64("top_distance", results[0].Distance))

	texts := make([]string, 0, len(results))
	for _, result := range results {
		texts = append(texts, strings.TrimSpace(result.Text))
	}

	return &RetrievedContext{
		Context: strings.Join(texts, contextSeparator),
		Sources: buildSources(results),
		Results: results,
	}
}

// buildSources 按文件名去重构造来源列表，保留首次出现的顺序
func buildSources(results []knowledge.SearchResult) []Source {
	seen := make(map[string]bool)
	sources := make([]Source, 0, len(results))
	for idx, result := range results {
		filename, _ := result.Metadata["filename"].(string)
		if filename == "" {
			filename = fmt.Sprintf("Source %d", idx+1)
		}
		if seen[filename] {
			continue
		}
		seen[filename] = true
		sources = append(sources, Source{
			URL:   fmt.Sprintf("#doc-%d", idx),
			Title: filename,
		})
	}
	return sources
}
