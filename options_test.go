package foreman_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mwhitt/foreman"
)

func TestFillDefaults(t *testing.T) {
	t.Parallel()

	o := foreman.Options{Workers: 4}
	o.FillDefaults()

	require.Equal(t, 4, o.Workers)
	require.Equal(t, 4*foreman.DefaultQueueFactor, o.QueueSize)
	require.Equal(t, foreman.DefaultPollInterval, o.PollInterval)
	require.NotNil(t, o.Logger)
	require.NotNil(t, o.Metrics)
}

func TestFillDefaultsKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	logger := zap.NewNop()
	m := &foreman.AtomicMetrics{}
	o := foreman.Options{
		Workers:      2,
		QueueSize:    7,
		PollInterval: 3 * time.Second,
		Logger:       logger,
		Metrics:      m,
	}
	o.FillDefaults()

	require.Equal(t, 7, o.QueueSize)
	require.Equal(t, 3*time.Second, o.PollInterval)
	require.Same(t, logger, o.Logger)
	require.Same(t, m, o.Metrics)
}
