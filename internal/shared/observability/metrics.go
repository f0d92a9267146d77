package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aura_analysis_seconds",
		Help:    "Time spent analyzing a repository or file batch.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aura_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aura_graph_nodes_total",
		Help: "Total number of nodes in the dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aura_graph_edges_total",
		Help: "Total number of edges in the dependency graph.",
	})

	DanglingEdgesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aura_dangling_edges_dropped_total",
		Help: "Edges dropped at build time because an endpoint was missing.",
	})

	PipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aura_pipeline_seconds",
		Help:    "Time spent in a context pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	EmbeddingRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aura_embedding_retries_total",
		Help: "Total number of retried embedding calls.",
	})

	EmbeddingFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aura_embedding_failures_total",
		Help: "Embedding calls that failed after all retries.",
	})

	UpdateBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aura_update_batches_total",
		Help: "Incremental update batches by outcome.",
	}, []string{"outcome"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aura_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
