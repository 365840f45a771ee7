package foreman

import (
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultQueueFactor sizes the job queue when Options.QueueSize is zero:
	// Workers * DefaultQueueFactor.
	DefaultQueueFactor = 64

	// DefaultPollInterval is the console cadence when Options.PollInterval
	// is zero.
	DefaultPollInterval = 500 * time.Millisecond
)

// Options configure a Pool.
//
// Workers is the one required field. All other zero values are replaced
// with sensible defaults in FillDefaults; a worker count below one is a
// construction error, not something FillDefaults repairs.
type Options struct {
	// Workers is the fixed number of worker goroutines. Must be positive;
	// NewWithOptions panics otherwise.
	Workers int

	// QueueSize bounds the job queue. Submissions beyond it block until a
	// worker frees a slot or the pool dies.
	QueueSize int

	// PollInterval is how long the operator console idles between reads.
	PollInterval time.Duration

	// Logger receives structured events from all pool components.
	// Nil disables logging.
	Logger *zap.Logger

	// Metrics receives activity counters. Nil means NoopMetrics.
	Metrics Metrics
}

func (o *Options) FillDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = o.Workers * DefaultQueueFactor
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = &NoopMetrics{}
	}
}
