// Package metrics records check runs as Prometheus metrics on a
// caller-owned registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/chazu/dfmcheck/pkg/dfm"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dfm"

// Recorder holds the run metrics.
type Recorder struct {
	reg *prometheus.Registry

	issues   *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	solids   prometheus.Gauge
	duration *prometheus.HistogramVec
}

// New registers the metrics on a fresh registry.
func New() (*Recorder, error) {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_total",
			Help:      "Issues reported, by rule and severity.",
		}, []string{"rule", "severity"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_queries_total",
			Help:      "Geometry queries that failed and were skipped, by check.",
		}, []string{"check"}),
		solids: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_solids",
			Help:      "Solids in the last analysed model.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_seconds",
			Help:      "Wall time of a check run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"process"}),
	}
	for _, c := range []prometheus.Collector{r.issues, r.skipped, r.solids, r.duration} {
		if err := r.reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return r, nil
}

// Registry exposes the registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Observe records one run.
func (r *Recorder) Observe(res dfm.Result, elapsed time.Duration) {
	for _, i := range res.Issues {
		r.issues.WithLabelValues(i.RuleID, string(i.Severity)).Inc()
	}
	for check, n := range res.Skipped {
		r.skipped.WithLabelValues(check).Add(float64(n))
	}
	r.solids.Set(float64(res.SolidCount))
	r.duration.WithLabelValues(string(res.Process)).Observe(elapsed.Seconds())
}

// WriteFile writes the metrics in the text exposition format, for the node
// exporter's textfile collector.
func (r *Recorder) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
