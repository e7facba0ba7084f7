// Package metrics exposes Prometheus collectors for the validation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts completed validation runs by framework
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "complyscan",
		Name:      "validation_runs_total",
		Help:      "Completed validation runs by framework.",
	}, []string{"framework"})

	// VerdictsTotal counts verdicts by status
	VerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "complyscan",
		Name:      "verdicts_total",
		Help:      "Verdicts recorded, by status.",
	}, []string{"status"})

	// LLMCallsTotal counts LLM calls by provider and outcome
	LLMCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "complyscan",
		Name:      "llm_calls_total",
		Help:      "LLM completion calls, by provider and outcome (ok, error, malformed).",
	}, []string{"provider", "outcome"})

	// LLMRetriesTotal counts strict-instruction retries after malformed output
	LLMRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "complyscan",
		Name:      "llm_retries_total",
		Help:      "Retries issued after malformed LLM responses.",
	})

	// CacheHitsTotal counts verdict cache hits
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "complyscan",
		Name:      "verdict_cache_hits_total",
		Help:      "Verdicts served from the cache.",
	})

	// RunDuration observes wall time of validation runs
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "complyscan",
		Name:      "validation_run_seconds",
		Help:      "Wall-clock duration of validation runs.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)
