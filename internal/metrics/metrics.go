// Package metrics records build stage metrics in a private Prometheus
// registry. A CLI run has no scrape endpoint, so the registry is exported
// as a node_exporter textfile on request.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luckyG0429/athena2/internal/model"
)

const namespace = "ath2"

// Recorder holds the stage metrics of one process.
type Recorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageRuns     *prometheus.CounterVec
	entries       prometheus.Gauge
	purged        prometheus.Counter
}

// NewRecorder returns a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "duration_seconds",
				Help:      "Compiler stage duration in seconds.",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"stage", "outcome"},
		),
		stageRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "runs_total",
				Help:      "Compiler stage runs by outcome.",
			},
			[]string{"stage", "outcome"},
		),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Page entries resolved for the last build.",
		}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purged_directories_total",
			Help:      "Module output directories removed before building.",
		}),
	}
	r.registry.MustRegister(r.stageDuration, r.stageRuns, r.entries, r.purged)
	return r
}

// ObserveStage records one stage result.
func (r *Recorder) ObserveStage(res model.StageResult) {
	outcome := res.Outcome.String()
	r.stageRuns.WithLabelValues(res.Stage, outcome).Inc()
	r.stageDuration.WithLabelValues(res.Stage, outcome).Observe(res.Duration.Seconds())
}

// SetEntries records the number of resolved entries.
func (r *Recorder) SetEntries(n int) {
	r.entries.Set(float64(n))
}

// AddPurged counts removed output directories.
func (r *Recorder) AddPurged(n int) {
	r.purged.Add(float64(n))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
