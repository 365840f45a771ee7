package foreman

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetricsCollect(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)
	p := NewWithOptions(Options{Workers: 2, Metrics: m})

	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		p.Submit(func() { defer wg.Done() })
	}
	wg.Wait()

	// the executed counter ticks just after the job body returns
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.executed) == 3
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 3.0, testutil.ToFloat64(m.submitted))

	p.Report(NonFatal("cosmetic"))
	require.Equal(t, 1.0, testutil.ToFloat64(m.signals.WithLabelValues("non-fatal")))

	p.Stop()
	p.Submit(func() {})
	require.Equal(t, 1.0, testutil.ToFloat64(m.rejected))
	require.Equal(t, 0.0, testutil.ToFloat64(m.active))

	fams, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(fams))
	for _, f := range fams {
		names = append(names, f.GetName())
	}
	require.Contains(t, names, "foreman_pool_jobs_executed_total")
	require.Contains(t, names, "foreman_pool_jobs_rejected_total")
	require.Contains(t, names, "foreman_pool_signals_total")
	require.Contains(t, names, "foreman_pool_active_workers")
}
