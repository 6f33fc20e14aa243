package apartment

import (
	"go.uber.org/zap"

	"github.com/go-asyncflow/asyncflow/metrics"
)

// config holds an apartment's construction-time settings. It is built by
// applying a caller's Options over defaults() and is immutable once the
// apartment starts.
type config struct {
	name       string
	workers    int
	logger     *zap.Logger
	metrics    metrics.Provider
	features   Features
	timerTick  bool // whether a delayed-queue timer goroutine is needed
}

func defaults(name string) config {
	return config{
		name:    name,
		workers: 1,
		logger:  zap.NewNop(),
		metrics: metrics.NewNoopProvider(),
	}
}

// Option mutates a config at construction time.
type Option func(*config)

// WithLogger attaches a *zap.Logger used for panic-recovery log lines (a
// callback that panics is logged with the apartment name and panic value).
// Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics attaches a metrics.Provider used to record queue depth and
// callback duration. Defaults to metrics.NoopProvider.
func WithMetrics(p metrics.Provider) Option {
	return func(c *config) {
		if p != nil {
			c.metrics = p
		}
	}
}
