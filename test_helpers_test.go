package foreman_test

import (
	"crypto/sha256"
	"runtime"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/mwhitt/foreman"
)

type workload struct {
	name string
	fn   foreman.Job
}

var shaData = []byte("some deterministic payloadsome deterministic payloadsome deterministic payload")

var (
	emptyWork = func() {}

	cpuWork = func() {
		x := 0
		for i := range 1000 {
			x += i * i
		}
		_ = x
	}

	ioWork = func() {
		time.Sleep(5 * time.Microsecond)
	}

	shaWork = func() {
		_ = sha256.Sum256(shaData)
	}
)

var workloads = []workload{
	{"empty", emptyWork},
	{"sha256", shaWork},
	{"cpu", cpuWork},
	{"io", ioWork},
}

func newTestPool(t *testing.T, workers int) *foreman.Pool {
	t.Helper()

	return foreman.NewWithOptions(foreman.Options{
		Workers:      workers,
		QueueSize:    1024,
		PollInterval: time.Millisecond,
		Logger:       zaptest.NewLogger(t),
	})
}

func newBenchPool(workers int) *foreman.Pool {
	return foreman.NewWithOptions(foreman.Options{
		Workers:   workers,
		QueueSize: 4096,
	})
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.Gosched()
	}
	t.Fatalf("condition not met within %v", timeout)
}

func waitUntilB(b *testing.B, timeout time.Duration, cond func() bool) {
	b.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.Gosched()
	}
	b.Fatalf("condition not met within %v", timeout)
}

func percentile(samples []int64, q float64) time.Duration {
	pos := int(float64(len(samples)-1) * q)
	return time.Duration(samples[pos])
}
