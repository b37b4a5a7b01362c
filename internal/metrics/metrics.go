package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "smartintern"

// LLM and embedding metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of text generation requests",
		},
		[]string{"provider", "model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Text generation request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"provider", "model"},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registerOnce sync.Once

// Register registers every collector with the default registry. Must be called once from main.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			LLMRequestsTotal,
			LLMRequestDuration,
			EmbeddingRequestsTotal,
			EmbeddingCacheTotal,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}

// ObserveLLM records one generation attempt.
func ObserveLLM(provider, model string, started time.Time, err error) {
	LLMRequestsTotal.WithLabelValues(provider, model, status(err)).Inc()
	LLMRequestDuration.WithLabelValues(provider, model).Observe(time.Since(started).Seconds())
}

// ObserveEmbedding records one embedding batch request.
func ObserveEmbedding(provider, model string, err error) {
	EmbeddingRequestsTotal.WithLabelValues(provider, model, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
