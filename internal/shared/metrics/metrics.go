package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "compliance"

// Analysis outcomes.
const (
	OutcomeFresh  = "fresh"
	OutcomeDedupe = "dedupe"
	OutcomeFailed = "failed"
)

// Chunk extraction outcomes.
const (
	ChunkOK     = "ok"
	ChunkEmpty  = "empty"
	ChunkFailed = "failed"
)

var (
	// AnalysesTotal counts document analyses. Labels: outcome (fresh, dedupe, failed)
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "documents_total",
			Help:      "Total number of document analyses by outcome",
		},
		[]string{"outcome"},
	)

	// ChunksTotal counts per-chunk extraction results. Labels: outcome (ok, empty, failed)
	ChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "chunks_total",
			Help:      "Total number of chunk extractions by outcome",
		},
		[]string{"outcome"},
	)

	// LLMAttemptsTotal counts LLM calls. Labels: result (success, retryable, permanent)
	LLMAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "attempts_total",
			Help:      "Total number of LLM request attempts by result",
		},
		[]string{"result"},
	)

	// TasksTotal counts decorated tasks produced by fresh analyses.
	TasksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "tasks_total",
			Help:      "Total number of compliance tasks extracted",
		},
	)

	// AnalysisDuration tracks wall time of fresh analyses.
	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Duration of fresh document analyses in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
)

// ObserveAnalysis records one analysis outcome.
func ObserveAnalysis(outcome string) {
	AnalysesTotal.WithLabelValues(outcome).Inc()
}

// ObserveChunk records one chunk extraction outcome.
func ObserveChunk(outcome string) {
	ChunksTotal.WithLabelValues(outcome).Inc()
}

// ObserveLLMAttempt records one LLM attempt result.
func ObserveLLMAttempt(result string) {
	LLMAttemptsTotal.WithLabelValues(result).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Register attaches the metrics endpoint to the engine.
func Register(r gin.IRoutes) {
	r.GET("/metrics", Handler())
}
