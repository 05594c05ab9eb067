package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/san-kum/episim/internal/sim"
)

const namespace = "episim"

// Collectors holds the run telemetry exported to Prometheus.
type Collectors struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	steps       *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	evaluations *prometheus.CounterVec
	simTime     *prometheus.HistogramVec
}

// NewCollectors creates the collectors on a fresh registry.
func NewCollectors() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Simulation runs by integrator and terminal status.",
		}, []string{"method", "status"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Accepted integrator steps.",
		}, []string{"method"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_steps_total",
			Help:      "Step attempts rejected by adaptive error control.",
		}, []string{"method"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "derivative_evaluations_total",
			Help:      "Derivative evaluations.",
		}, []string{"method"}),
		simTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simulated_time",
			Help:      "Model time reached per run.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"method"}),
	}
	c.registry.MustRegister(c.runs, c.steps, c.rejected, c.evaluations, c.simTime)
	return c
}

func (c *Collectors) Registry() *prometheus.Registry { return c.registry }

// Record adds a finished run.
func (c *Collectors) Record(method string, sum *sim.Summary) {
	c.runs.WithLabelValues(method, sum.Status.String()).Inc()
	c.steps.WithLabelValues(method).Add(float64(sum.Steps))
	c.rejected.WithLabelValues(method).Add(float64(sum.Rejected))
	c.evaluations.WithLabelValues(method).Add(float64(sum.Evaluations))
	c.simTime.WithLabelValues(method).Observe(sum.FinalTime)
}

// WriteText writes every collected family in the Prometheus text format.
func (c *Collectors) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
