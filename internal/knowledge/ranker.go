package knowledge

import (
	"math"
	"sort"

	apperrors "github.com/EkarshaSumajK/Knowledge-Base-Search/internal/errors"
)

// RankedVector 带距离的候选记录
type RankedVector struct {
	Vector   StoredVector
	Distance float64
}

// Rank 对候选向量做全量余弦距离扫描，按距离升序稳定排序后截取topK。
// 距离 = 1 - 余弦相似度；相同距离按插入顺序排列。
// 遇到零模向量直接报错，不做静默除零。
func Rank(query []float32, candidates []StoredVector, topK int) ([]RankedVector, error) {
	if topK <= 0 || len(candidates) == 0 {
		return nil, nil
	}

	queryNorm := vectorNorm(query)
	if queryNorm == 0 {
		return nil, apperrors.NewDegenerateVectorError()
	}

	ranked := make([]RankedVector, 0, len(candidates))
	for _, candidate := range candidates {
		similarity, err := cosineSimilarity(query, candidate.Embedding, queryNorm)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, RankedVector{
			Vector:   candidate,
			Distance: 1 - similarity,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}

func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// cosineSimilarity 计算余弦相似度，normA为预先算好的查询向量模
func cosineSimilarity(a, b []float32, normA float64) (float64, error) {
	if len(a) != len(b) {
		// 维度不一致时对齐到较短一侧
		minLen := len(a)
		if len(b) < minLen {
			minLen = len(b)
		}
		a = a[:minLen]
		b = b[:minLen]
	}

	var dot float64
	var sumB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		sumB += float64(b[i]) * float64(b[i])
	}

	normB := math.Sqrt(sumB)
	if normA == 0 || normB == 0 {
		return 0, apperrors.NewDegenerateVectorError()
	}

	return dot / (normA * normB), nil
}
