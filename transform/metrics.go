package transform

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts the plugin's work.
type Metrics struct {
	inspected *prometheus.CounterVec
	rewritten prometheus.Counter
	names     *prometheus.CounterVec
	duration  prometheus.Histogram
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		inspected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nashorn_compat_units_inspected_total",
				Help: "Number of code units seen by the remapper, by load reason.",
			},
			[]string{"reason"},
		),
		rewritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nashorn_compat_units_rewritten_total",
				Help: "Number of code units replaced after rewriting.",
			},
		),
		names: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nashorn_compat_names_rewritten_total",
				Help: "Number of names rewritten, by kind.",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nashorn_compat_transform_duration_seconds",
				Help:    "Time taken to transform a code unit.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// Register adds the collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.inspected, m.rewritten, m.names, m.duration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observe(res Result, seconds float64) {
	m.duration.Observe(seconds)
	if !res.Changed {
		return
	}
	m.rewritten.Inc()
	for _, b := range res.Bindings {
		m.names.WithLabelValues(b.Kind.String()).Inc()
	}
}
