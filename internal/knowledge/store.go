package knowledge

import "context"

// Document 待入库的文档块，由检索编排层在上传时构造
type Document struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

// StoredVector 已持久化的向量记录。同一store实例内所有embedding维度一致
type StoredVector struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	Embedding []float32              `json:"embedding"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// SearchResult 检索结果。Distance为余弦距离，取值[0,2]，越小越相近
type SearchResult struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
	Distance float64                `json:"distance"`
}

// DocumentSummary stats返回的单条记录摘要
type DocumentSummary struct {
	ID          string                 `json:"id"`
	TextPreview string                 `json:"textPreview"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// StoreStats 向量存储统计信息
type StoreStats struct {
	DocumentCount int               `json:"documentCount"`
	Documents     []DocumentSummary `json:"documents"`
}

// VectorStore 向量存储抽象，两种实现：本地JSON持久化 / 外部向量数据库
type VectorStore interface {
	// Add 向量化所有文本后持久化；空输入为no-op；embedding失败时
	// 不产生任何部分写入
	Add(ctx context.Context, documents []Document) error
	// Search 向量化查询并返回按距离升序的topK结果；空库返回空切片而非错误
	Search(ctx context.Context, query string, topK int) ([]SearchResult, error)
	// Stats 返回记录总数与摘要列表
	Stats(ctx context.Context) (*StoreStats, error)
	// Clear 清空全部记录，幂等
	Clear(ctx context.Context) error
	// DeleteByFilename 删除metadata.filename匹配的全部记录，返回删除数量；
	// 无匹配返回0，不是错误
	DeleteByFilename(ctx context.Context, filename string) (int, error)
	Ready() bool
}

// textPreviewRunes stats摘要截取的最大字符数
const textPreviewRunes = 100

// previewText 生成文本摘要：前100个字符加省略号
func previewText(text string) string {
	runes := []rune(text)
	if len(runes) > textPreviewRunes {
		runes = runes[:textPreviewRunes]
	}
	return string(runes) + "..."
}

// metadataFilename 从metadata中取filename字段
func metadataFilename(metadata map[string]interface{}) string {
	if metadata == nil {
		return ""
	}
	if name, ok := metadata["filename"].(string); ok {
		return name
	}
	return ""
}
