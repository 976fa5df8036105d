// Package metrics exposes projection activity as Prometheus metrics on an
// injected registry.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var ErrRegistrationFailed = errors.New("metric registration failed")

const namespace = "stockproj"

// Collector records evaluations and sensitivity runs. A nil *Collector is a
// valid no-op.
type Collector struct {
	registry prometheus.Gatherer

	evaluations     *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	spawningBiomass *prometheus.GaugeVec
	depletion       *prometheus.GaugeVec
	sensitivity     *prometheus.CounterVec
}

// New registers the collector's metrics on reg. A nil reg gets a private
// registry.
func New(reg *prometheus.Registry) (*Collector, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		registry: reg,
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Projection evaluations by scenario and outcome.",
		}, []string{"scenario", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of one projection evaluation.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"scenario"}),
		spawningBiomass: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "terminal_spawning_biomass",
			Help:      "Spawning biomass in the terminal projected year of the latest run.",
		}, []string{"scenario"}),
		depletion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "terminal_depletion",
			Help:      "Terminal spawning biomass over its unfished counterpart for the latest run.",
		}, []string{"scenario"}),
		sensitivity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensitivity_graphs_total",
			Help:      "Independent derivative graphs evaluated by sensitivity runs.",
		}, []string{"scenario"}),
	}
	for _, m := range []prometheus.Collector{c.evaluations, c.duration, c.spawningBiomass, c.depletion, c.sensitivity} {
		if err := reg.Register(m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
		}
	}
	return c, nil
}

func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return prometheus.NewRegistry()
	}
	return c.registry
}

// ObserveEvaluation counts one evaluation and, on success, records its
// duration and terminal state.
func (c *Collector) ObserveEvaluation(scenario string, elapsed time.Duration, terminalSB, depletion float64, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.evaluations.WithLabelValues(scenario, "error").Inc()
		return
	}
	c.evaluations.WithLabelValues(scenario, "ok").Inc()
	c.duration.WithLabelValues(scenario).Observe(elapsed.Seconds())
	c.spawningBiomass.WithLabelValues(scenario).Set(terminalSB)
	c.depletion.WithLabelValues(scenario).Set(depletion)
}

func (c *Collector) ObserveSensitivity(scenario string, graphs int) {
	if c == nil {
		return
	}
	c.sensitivity.WithLabelValues(scenario).Add(float64(graphs))
}
