// Package metrics 定义进程级 Prometheus 指标。
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// 编排器请求结果
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type Metrics struct {
	OrchestratorRequests *prometheus.CounterVec
	CacheHits            prometheus.Counter
	CacheMisses          prometheus.Counter
	ProviderLatency      *prometheus.HistogramVec
	SearchDegraded       prometheus.Counter
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			OrchestratorRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "matesl",
				Name:      "ai_requests_total",
				Help:      "AI provider invocations by provider and outcome",
			}, []string{"provider", "outcome"}),
			CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "matesl",
				Name:      "ai_cache_hits_total",
				Help:      "AI response cache hits",
			}),
			CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "matesl",
				Name:      "ai_cache_misses_total",
				Help:      "AI response cache misses",
			}),
			ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "matesl",
				Name:      "ai_provider_duration_seconds",
				Help:      "Latency of AI provider calls",
				Buckets:   prometheus.DefBuckets,
			}, []string{"provider"}),
			SearchDegraded: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "matesl",
				Name:      "search_degraded_total",
				Help:      "Procedure searches that returned an empty result because of a storage failure",
			}),
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "matesl",
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status",
			}, []string{"route", "method", "status"}),
			HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "matesl",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
		}
		prometheus.MustRegister(
			global.OrchestratorRequests,
			global.CacheHits,
			global.CacheMisses,
			global.ProviderLatency,
			global.SearchDegraded,
			global.HTTPRequests,
			global.HTTPDuration,
		)
	})
	return global
}
