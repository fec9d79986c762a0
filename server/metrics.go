package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	generateRequests *prometheus.CounterVec
	generateDuration prometheus.Histogram
	generatedTokens  prometheus.Counter
	prepareExamples  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		generateRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lanelm",
			Name:      "generate_requests_total",
			Help:      "Generate requests by outcome.",
		}, []string{"status"}),
		generateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lanelm",
			Name:      "generate_duration_seconds",
			Help:      "Time spent generating a sequence.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		generatedTokens: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lanelm",
			Name:      "generated_tokens_total",
			Help:      "Tokens sampled across all sessions.",
		}),
		prepareExamples: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lanelm",
			Name:      "prepare_examples_total",
			Help:      "Examples produced by prepare requests.",
		}),
	}
}
