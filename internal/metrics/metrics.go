// Package metrics exposes Prometheus counters for runs and feed traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "threadwatch"

// Run outcomes used as the "outcome" label on runs_total.
const (
	OutcomeIdle       = "idle"
	OutcomeReported   = "reported"
	OutcomeDiagnostic = "diagnostic"
)

// Metrics holds every collector the pipeline reports to.
type Metrics struct {
	// Runs counts pipeline runs. Labels: outcome (idle, reported, diagnostic)
	Runs *prometheus.CounterVec
	// RunDuration measures wall time of a run in seconds.
	RunDuration prometheus.Histogram
	// PostsReported counts posts that got a compiled report.
	PostsReported prometheus.Counter
	// RepliesFetched counts unique replies harvested.
	RepliesFetched prometheus.Counter
	// ReplyPages counts reply listing calls.
	ReplyPages prometheus.Counter
	// RateLimitStalls counts pages that returned a cursor but no new replies.
	RateLimitStalls prometheus.Counter
	// Deliveries counts outbound chunks. Labels: status (sent, failed)
	Deliveries *prometheus.CounterVec
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests to keep them isolated.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome",
		}, []string{"outcome"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		PostsReported: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_reported_total",
			Help:      "Posts with a compiled report",
		}),
		RepliesFetched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "replies_total",
			Help:      "Unique replies harvested",
		}),
		ReplyPages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "pages_total",
			Help:      "Reply listing calls issued",
		}),
		RateLimitStalls: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "rate_limit_stalls_total",
			Help:      "Pages with a cursor but no new replies",
		}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "chunks_total",
			Help:      "Outbound message chunks by status",
		}, []string{"status"}),
	}
}

// Nop returns collectors registered nowhere.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler serves the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
