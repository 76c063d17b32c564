package bosun

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Disconnect reasons used as the "reason" label of the disconnects counter.
const (
	ReasonConnection = "connection"
	ReasonTarget     = "target"
	ReasonRelease    = "release"
	ReasonAll        = "all"
	ReasonClose      = "close"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "bosun").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "bosun",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors shared by instrumented notifiers.
type Metrics struct {
	connects    *prometheus.CounterVec
	disconnects *prometheus.CounterVec
	broadcasts  *prometheus.CounterVec
	failures    *prometheus.CounterVec
	listeners   *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors.
// It panics if the collectors are already registered with the registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		connects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "connects_total",
			Help:        "Total number of listeners connected.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"notifier"}),
		disconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "disconnects_total",
			Help:        "Total number of listeners disconnected, by reason.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"notifier", "reason"}),
		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "broadcasts_total",
			Help:        "Total number of broadcasts.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"notifier"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "broadcast_failures_total",
			Help:        "Total number of broadcasts aborted by a listener error or panic.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"notifier"}),
		listeners: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "listeners",
			Help:        "Number of connected listeners, summed over notifiers sharing a name.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"notifier"}),
	}
}

// The methods below are nil-safe so notifiers without metrics skip them.
// The listeners gauge moves by deltas so notifiers sharing a name add up.

func (m *Metrics) connected(name string) {
	if m == nil {
		return
	}
	m.connects.WithLabelValues(name).Inc()
	m.listeners.WithLabelValues(name).Inc()
}

func (m *Metrics) disconnected(name, reason string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.disconnects.WithLabelValues(name, reason).Add(float64(count))
	m.listeners.WithLabelValues(name).Sub(float64(count))
}

func (m *Metrics) broadcast(name string, failed bool) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(name).Inc()
	if failed {
		m.failures.WithLabelValues(name).Inc()
	}
}
