// Package observability wires Prometheus metrics and OpenTelemetry tracing
// into projection runs.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/litescript/ls-carto/internal/carto"
)

// Collector bundles the projection metrics. It satisfies carto.Recorder.
type Collector struct {
	gatherer prometheus.Gatherer

	Runs         prometheus.Counter
	RunDurations prometheus.Histogram
	Lines        prometheus.Counter
	Parans       prometheus.Counter
	Warnings     prometheus.Counter
	StageErrors  *prometheus.CounterVec
}

var _ carto.Recorder = (*Collector)(nil)

// NewCollector registers the projection metrics against reg, defaulting to
// the global Prometheus registry when nil. Registering twice against the same
// registry reuses the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "carto_runs_total",
		Help: "Total number of completed projection runs.",
	}), "carto_runs_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "carto_run_duration_seconds",
		Help:    "Projection run latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}), "carto_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	lines, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "carto_lines_total",
		Help: "Total number of line features produced.",
	}), "carto_lines_total")
	if err != nil {
		return nil, err
	}

	parans, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "carto_parans_total",
		Help: "Total number of paran events found.",
	}), "carto_parans_total")
	if err != nil {
		return nil, err
	}

	warnings, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "carto_warnings_total",
		Help: "Total number of warnings attached to projections.",
	}), "carto_warnings_total")
	if err != nil {
		return nil, err
	}

	stageErrors, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "carto_stage_failures_total",
		Help: "Per-body failures, labeled by pipeline stage.",
	}, []string{"stage"}), "carto_stage_failures_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:     gatherer,
		Runs:         runs,
		RunDurations: durations,
		Lines:        lines,
		Parans:       parans,
		Warnings:     warnings,
		StageErrors:  stageErrors,
	}, nil
}

// RunCompleted records one finished run.
func (c *Collector) RunCompleted(d time.Duration, lines, parans, warnings int) {
	if c == nil {
		return
	}
	c.Runs.Inc()
	c.RunDurations.Observe(d.Seconds())
	c.Lines.Add(float64(lines))
	c.Parans.Add(float64(parans))
	c.Warnings.Add(float64(warnings))
}

// StageFailed records one per-body failure.
func (c *Collector) StageFailed(stage carto.Stage) {
	if c == nil {
		return
	}
	c.StageErrors.WithLabelValues(string(stage)).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
