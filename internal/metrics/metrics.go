// Package metrics exposes mining run statistics as Prometheus collectors on a
// private registry. A nil *Recorder records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/TobiSchelling/BasketMiner/internal/apriori"
)

// Recorder holds the basketminer collectors.
type Recorder struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	candidates    *prometheus.GaugeVec
	frequent      *prometheus.GaugeVec
	rules         *prometheus.GaugeVec
	baskets       prometheus.Gauge
	lastRunUnixTs prometheus.Gauge
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "basketminer_runs_total",
				Help: "Pipeline runs by outcome",
			},
			[]string{"status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "basketminer_step_duration_seconds",
				Help:    "Pipeline step duration in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"step"},
		),
		candidates: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "basketminer_level_candidates",
				Help: "Candidate itemsets counted at each level of the last run",
			},
			[]string{"size"},
		),
		frequent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "basketminer_level_frequent",
				Help: "Frequent itemsets found at each level of the last run",
			},
			[]string{"size"},
		),
		rules: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "basketminer_rules",
				Help: "Rules kept by each report of the last run",
			},
			[]string{"metric"},
		),
		baskets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "basketminer_baskets",
				Help: "Baskets retained by the last run",
			},
		),
		lastRunUnixTs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "basketminer_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),
	}
	r.registry.MustRegister(r.runs, r.stepDuration, r.candidates, r.frequent, r.rules, r.baskets, r.lastRunUnixTs)
	return r
}

// Registry returns the registry holding every collector.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Step records the duration of a pipeline step.
func (r *Recorder) Step(name string, d time.Duration) {
	if r == nil {
		return
	}
	r.stepDuration.WithLabelValues(name).Observe(d.Seconds())
}

// Level records one mining level.
func (r *Recorder) Level(s apriori.LevelStats) {
	if r == nil {
		return
	}
	size := fmt.Sprintf("%d", s.Size)
	r.candidates.WithLabelValues(size).Set(float64(s.Candidates))
	r.frequent.WithLabelValues(size).Set(float64(s.Frequent))
}

// Rules records the size of one rule report.
func (r *Recorder) Rules(metric string, n int) {
	if r == nil {
		return
	}
	r.rules.WithLabelValues(metric).Set(float64(n))
}

// Baskets records the retained basket count.
func (r *Recorder) Baskets(n int) {
	if r == nil {
		return
	}
	r.baskets.Set(float64(n))
}

// Run records a finished run; err decides the outcome label.
func (r *Recorder) Run(err error, finished time.Time) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "failed"
	}
	r.runs.WithLabelValues(status).Inc()
	r.lastRunUnixTs.Set(float64(finished.Unix()))
}

// Reset clears the per-run gauges before a new run.
func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.candidates.Reset()
	r.frequent.Reset()
	r.rules.Reset()
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
