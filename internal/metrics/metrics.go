// Package metrics exposes Prometheus collectors for tree calibration and pricing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pricing groups the collectors updated by the pricer. A nil *Pricing is valid
// and records nothing.
type Pricing struct {
	calibrations   prometheus.Counter
	calibrationDur prometheus.Histogram
	fallbackNodes  prometheus.Counter
	errors         *prometheus.CounterVec
}

// NewPricing creates the collectors and registers them with reg.
func NewPricing(reg prometheus.Registerer) (*Pricing, error) {
	m := &Pricing{
		calibrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fxtree",
			Name:      "calibrations_total",
			Help:      "Number of completed implied-tree calibrations.",
		}),
		calibrationDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fxtree",
			Name:      "calibration_seconds",
			Help:      "Wall time of implied-tree calibrations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		fallbackNodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fxtree",
			Name:      "fallback_nodes_total",
			Help:      "Tree nodes whose probabilities came from the moment-matching fallback.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fxtree",
			Name:      "pricing_errors_total",
			Help:      "Pricing failures by reason.",
		}, []string{"reason"}),
	}
	for _, c := range []prometheus.Collector{m.calibrations, m.calibrationDur, m.fallbackNodes, m.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveCalibration records one successful calibration.
func (m *Pricing) ObserveCalibration(d time.Duration, fallbackNodes int) {
	if m == nil {
		return
	}
	m.calibrations.Inc()
	m.calibrationDur.Observe(d.Seconds())
	m.fallbackNodes.Add(float64(fallbackNodes))
}

// ObserveError counts a failed pricing call.
func (m *Pricing) ObserveError(reason string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(reason).Inc()
}
