// Package metrics exposes engine counters and histograms on a private
// Prometheus registry.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Registry struct {
	registry *prometheus.Registry

	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	FindingsTotal    *prometheus.CounterVec
	PassFailures     *prometheus.CounterVec
	SecurityScore    prometheus.Histogram
}

func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	f := promauto.With(r.registry)

	r.AnalysesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartaudit_analyses_total",
			Help: "Total number of engine operations by outcome",
		},
		[]string{"operation", "status"},
	)
	r.AnalysisDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartaudit_analysis_duration_seconds",
			Help:    "Engine operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"operation"},
	)
	r.FindingsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartaudit_findings_total",
			Help: "Total number of scored issues reported, by severity",
		},
		[]string{"severity"},
	)
	r.PassFailures = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartaudit_pass_failures_total",
			Help: "Total number of analysis passes that failed or panicked",
		},
		[]string{"pass"},
	)
	r.SecurityScore = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "smartaudit_security_score",
		Help:    "Distribution of computed security scores",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})
	return r
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() { defaultRegistry = NewRegistry() })
	return defaultRegistry
}

// Gatherer exposes the underlying registry for scraping or dumping.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }

// RecordAnalysis records one engine operation with its duration
func (r *Registry) RecordAnalysis(operation, status string, duration time.Duration) {
	r.AnalysesTotal.WithLabelValues(operation, status).Inc()
	r.AnalysisDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (r *Registry) RecordFindings(severity string, n int) {
	if n > 0 {
		r.FindingsTotal.WithLabelValues(severity).Add(float64(n))
	}
}

func (r *Registry) RecordPassFailure(pass string) {
	r.PassFailures.WithLabelValues(pass).Inc()
}

func (r *Registry) RecordScore(score int) {
	r.SecurityScore.Observe(float64(score))
}
