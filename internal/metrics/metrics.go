// Package metrics provides Prometheus metrics for spicesweep
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for spicesweep. Each instance owns
// its registry so several can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	// Simulator metrics
	SimulationsTotal   *prometheus.CounterVec
	SimulationDuration prometheus.Histogram

	// Netlist metrics
	ParameterChangesTotal prometheus.Counter

	// Raw file metrics
	RawParsesTotal *prometheus.CounterVec

	// Sweep metrics
	SweepPointsTotal *prometheus.CounterVec
	SweepsInFlight   prometheus.Gauge
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{Registry: reg}

	m.SimulationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spicesweep_simulations_total",
			Help: "Total number of simulator runs",
		},
		[]string{"status"},
	)

	m.SimulationDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spicesweep_simulation_duration_seconds",
			Help:    "Duration of simulator runs in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	m.ParameterChangesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "spicesweep_parameter_changes_total",
			Help: "Total number of netlist parameter assignments applied",
		},
	)

	m.RawParsesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spicesweep_raw_parses_total",
			Help: "Total number of raw result files parsed",
		},
		[]string{"status"},
	)

	m.SweepPointsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spicesweep_sweep_points_total",
			Help: "Total number of sweep points completed",
		},
		[]string{"status"},
	)

	m.SweepsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "spicesweep_sweeps_in_flight",
			Help: "Number of sweeps currently running",
		},
	)

	return m
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordSimulation records a finished simulator run. Safe on a nil receiver.
func (m *Metrics) RecordSimulation(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.SimulationsTotal.WithLabelValues(status(err)).Inc()
	m.SimulationDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordParameterChanges(n int) {
	if m == nil {
		return
	}
	m.ParameterChangesTotal.Add(float64(n))
}

func (m *Metrics) RecordRawParse(err error) {
	if m == nil {
		return
	}
	m.RawParsesTotal.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) RecordSweepPoint(err error) {
	if m == nil {
		return
	}
	m.SweepPointsTotal.WithLabelValues(status(err)).Inc()
}

// SweepStarted marks a sweep as running and returns the func that ends it.
func (m *Metrics) SweepStarted() func() {
	if m == nil {
		return func() {}
	}
	m.SweepsInFlight.Inc()
	return m.SweepsInFlight.Dec
}

// WriteTextfile writes the registry in the text exposition format, for
// node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
