// Package metrics exposes the service's prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rlvr_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rlvr_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	TranslationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rlvr_translations_total",
		Help: "Translated segments by target language and mode",
	}, []string{"lang", "mode"})

	CandidatesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rlvr_candidates_generated_total",
		Help: "Candidate translations produced by generators",
	})

	BestReward = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rlvr_best_reward",
		Help:    "Aggregate reward of the selected best candidate",
		Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
	})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rlvr_llm_requests_total",
		Help: "Chat-completion calls by status",
	}, []string{"model", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rlvr_llm_request_duration_seconds",
		Help:    "Chat-completion call duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"model"})
)
