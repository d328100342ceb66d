package knowledge

// maxChunksPerDocument 分块数量硬上限，防止病态输入导致内存耗尽。
// 达到上限时截断输出，不视为错误。
const maxChunksPerDocument = 10000

// Chunker 文本分块器，按固定窗口+重叠切分
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker 创建分块器
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: overlap,
	}
}

// Split 将文本切分为多个chunk，相邻chunk共享overlap长度的重叠区
//
// 窗口起点每次前进 chunkSize-overlap；当overlap >= chunkSize导致
// 步进不再前进时，起点被强制推到当前窗口末尾，保证扫描偏移严格递增。
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.chunkSize {
		return []string{text}
	}

	step := c.chunkSize - c.chunkOverlap

	var chunks []string
	for start := 0; start < len(runes) && len(chunks) < maxChunksPerDocument; {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))

		next := start + step
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// ChunkSize 返回配置的窗口大小
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// ChunkOverlap 返回配置的重叠长度
func (c *Chunker) ChunkOverlap() int {
	return c.chunkOverlap
}
