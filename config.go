package bosun

import "go.uber.org/zap"

const defaultName = "notifier"

// config holds the settings shared by every Notifier signature.
type config struct {
	name          string
	logger        *zap.Logger
	metrics       *Metrics
	panicRecovery bool
}

func defaultConfig() config {
	return config{
		name:   defaultName,
		logger: zap.NewNop(),
	}
}

// Option configures a Notifier.
type Option func(*config)

// WithName sets the name used to label the notifier's logs and metrics.
// Default is "notifier". Empty names are ignored.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger sets the structured logger. Connections, disconnections and target
// releases are logged at debug level; rejected connections at warn level.
// By default nothing is logged. A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records the notifier's activity in m.
// Several notifiers may share one Metrics; their series are split by name.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithPanicRecovery makes Broadcast recover a panicking listener and return the
// panic as a *PanicError. The broadcast still stops at the panicking listener.
// By default panics propagate to the caller of Broadcast.
func WithPanicRecovery() Option {
	return func(c *config) {
		c.panicRecovery = true
	}
}
