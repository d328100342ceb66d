package services

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 检索子系统指标
var (
	documentsUploadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kbs_documents_uploaded_total",
		Help: "Number of uploaded files successfully processed.",
	})
	chunksIndexedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kbs_chunks_indexed_total",
		Help: "Number of chunks added to the vector store.",
	})
	searchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kbs_searches_total",
		Help: "Number of similarity searches issued.",
	})
	searchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kbs_search_duration_seconds",
		Help:    "Similarity search latency in seconds.",
		Buckets: prometheus.DefBuckets,
	})
)

// MetricsService 指标服务
type MetricsService struct{}

// NewMetricsService 创建指标服务
func NewMetricsService() *MetricsService {
	return &MetricsService{}
}

// Handler 返回Prometheus指标的HTTP处理器
func (ms *MetricsService) Handler() http.Handler {
	return promhttp.Handler()
}

// ServeHTTP 实现http.Handler接口
func (ms *MetricsService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ms.Handler().ServeHTTP(w, r)
}
