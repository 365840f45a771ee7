package foreman

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func waitDead(t *testing.T, p *Pool) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not die")
	}
}

func TestFatalInjectionOnEitherChannel(t *testing.T) {
	cases := []struct {
		name string
		feed func(p *Pool, sig Signal)
	}{
		{"errs", func(p *Pool, sig Signal) { p.sup.errs <- sig }},
		{"commands", func(p *Pool, sig Signal) { p.sup.commands <- sig }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewWithOptions(Options{Workers: 2})
			tc.feed(p, Fatal("injected"))
			waitDead(t, p)

			require.True(t, p.IsDead())

			// the watcher leaves after its one fan-out
			select {
			case <-p.sup.done:
			case <-time.After(time.Second):
				t.Fatal("watcher did not exit")
			}

			// exactly one console notification, carrying the reason
			sig := <-p.sup.notify
			require.Equal(t, SeverityFatal, sig.Severity)
			require.Equal(t, "injected", sig.Reason)
			require.Len(t, p.sup.notify, 0)

			require.ErrorIs(t, p.Shutdown(context.Background()), ErrAlreadyDead)
		})
	}
}

func TestFanoutHappensOnce(t *testing.T) {
	p := NewWithOptions(Options{Workers: 1})

	p.sup.errs <- Fatal("first")
	waitDead(t, p)

	// a second fatal after the watcher left must neither block nor
	// broadcast again
	p.Report(Fatal("second"))
	require.True(t, p.IsDead())
	require.Len(t, p.sup.notify, 1)

	require.ErrorIs(t, p.Shutdown(context.Background()), ErrAlreadyDead)
}

func TestRecordSeverityPolicy(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewWithOptions(Options{Workers: 1, Logger: zap.New(core)})
	defer p.Stop()

	p.sup.record(Signal{}) // SeverityNothing: not an event
	p.sup.record(NonFatal("hiccup"))

	require.Equal(t, 1, logs.FilterMessage("non-fatal error").Len())
	require.Equal(t, 0, logs.FilterMessage("fatal error").Len())
	require.Len(t, p.sup.errs, 0)
	require.False(t, p.IsDead())
}

func TestCleanShutdownStopsWatcher(t *testing.T) {
	p := NewWithOptions(Options{Workers: 2})
	require.NoError(t, p.Shutdown(context.Background()))

	select {
	case <-p.sup.done:
	default:
		t.Fatal("watcher still running after a clean shutdown")
	}

	// the console still gets told, even though nobody is reading
	sig := <-p.sup.notify
	require.Equal(t, SeverityFatal, sig.Severity)
}

func TestSubmitSendFailureEscalates(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := NewWithOptions(Options{Workers: 1, Logger: zap.New(core)})

	close(p.jobs) // the receiving side is gone; the next send must not crash the caller
	require.NotPanics(t, func() { p.Submit(func() {}) })
	waitDead(t, p)

	require.True(t, p.IsDead())
	require.Equal(t, 1, logs.FilterMessage("fatal error").Len())
	require.Contains(t, logs.FilterMessage("fatal error").All()[0].ContextMap()["reason"], "job queue send failed")
	require.ErrorIs(t, p.Shutdown(context.Background()), ErrAlreadyDead)
}

func TestShutdownSendFailureAborts(t *testing.T) {
	p := NewWithOptions(Options{Workers: 1})

	close(p.jobs)
	err := p.Shutdown(context.Background())
	require.ErrorIs(t, err, ErrShutdownAborted)
	require.True(t, p.IsDead())
}
