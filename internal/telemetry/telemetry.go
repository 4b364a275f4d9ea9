package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics exposed on /metrics. Labels stay low-cardinality: tier is
// local|shared, format is the file extension after decoder dispatch.
var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsportal_extract_cache_hits_total",
		Help: "Extraction cache hits per tier",
	}, []string{"tier"})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opsportal_extract_cache_misses_total",
		Help: "Extraction cache misses across all tiers",
	})

	DecodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsportal_extract_decode_failures_total",
		Help: "Decoder failures per format (absorbed, never fatal)",
	}, []string{"format"})

	OCRFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opsportal_extract_ocr_fallbacks_total",
		Help: "Scanned-PDF OCR fallback invocations",
	})

	ChunkSearchFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opsportal_retrieval_chunk_fallbacks_total",
		Help: "Requests that fell back from chunk search to full extraction",
	})

	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "opsportal_resolve_duration_seconds",
		Help:    "Attachment resolution duration",
		Buckets: prometheus.DefBuckets,
	})

	ResolvedFiles = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "opsportal_resolve_files",
		Help:    "Resolved files per request",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})

	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsportal_box_provider_errors_total",
		Help: "Repository provider call failures per operation",
	}, []string{"op"})
)
