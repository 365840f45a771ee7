package foreman

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newConsolePool() *Pool {
	return NewWithOptions(Options{Workers: 2, PollInterval: time.Millisecond})
}

func waitConsoleStopped(t *testing.T, p *Pool) {
	t.Helper()
	select {
	case <-p.console.done:
	case <-time.After(2 * time.Second):
		t.Fatal("console did not stop")
	}
}

func TestConsoleExitKeywordKillsPool(t *testing.T) {
	p := newConsolePool()
	r, w := io.Pipe()
	var out bytes.Buffer
	p.ServeConsole(r, &out)

	_, err := io.WriteString(w, "status\nexit\n")
	require.NoError(t, err)

	waitDead(t, p)
	waitConsoleStopped(t, p)

	require.True(t, p.IsDead())
	require.Contains(t, out.String(), "> ")
	require.Contains(t, out.String(), "shutting down")

	require.NoError(t, w.Close())
	require.ErrorIs(t, p.Shutdown(context.Background()), ErrAlreadyDead)
}

func TestConsoleKeywordExactness(t *testing.T) {
	cases := []struct {
		name string
		line string
		dies bool
	}{
		{"upper", "EXIT\n", false},
		{"embedded", "exit now\n", false},
		{"padded", "  exit  \n", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newConsolePool()
			r, w := io.Pipe()
			p.ServeConsole(r, io.Discard)

			_, err := io.WriteString(w, tc.line)
			require.NoError(t, err)

			if tc.dies {
				waitDead(t, p)
			} else {
				require.Never(t, p.IsDead, 100*time.Millisecond, 10*time.Millisecond)
			}

			_ = p.Shutdown(context.Background())
			require.NoError(t, w.Close())
			waitConsoleStopped(t, p)
		})
	}
}

func TestConsoleEOFWaitsForPoolDeath(t *testing.T) {
	p := newConsolePool()
	r, w := io.Pipe()
	p.ServeConsole(r, io.Discard)

	// the operator stream ending is not a shutdown request
	require.NoError(t, w.Close())
	require.Never(t, p.IsDead, 100*time.Millisecond, 10*time.Millisecond)
	select {
	case <-p.console.done:
		t.Fatal("console exited before the pool died")
	default:
	}

	p.Stop()
	waitConsoleStopped(t, p)
}

func TestConsoleBlockedReadDelaysNotice(t *testing.T) {
	// A fatal raised while the console sits in a read is only noticed once
	// that read returns. The stuck prompt is the accepted cost of a
	// blocking reader; this pins the behavior down so a change is loud.
	p := newConsolePool()
	r, w := io.Pipe()
	p.ServeConsole(r, io.Discard)

	p.Report(Fatal("external"))
	waitDead(t, p)

	require.Never(t, func() bool {
		select {
		case <-p.console.done:
			return true
		default:
			return false
		}
	}, 100*time.Millisecond, 10*time.Millisecond)

	// the next line wakes the reader, which then sees the dead pool
	_, err := io.WriteString(w, "anything\n")
	require.NoError(t, err)
	waitConsoleStopped(t, p)

	require.NoError(t, w.Close())
	require.ErrorIs(t, p.Shutdown(context.Background()), ErrAlreadyDead)
}

func TestServeConsoleSecondCallIgnored(t *testing.T) {
	p := newConsolePool()
	r1, w1 := io.Pipe()
	p.ServeConsole(r1, io.Discard)
	first := p.console

	r2, _ := io.Pipe()
	p.ServeConsole(r2, io.Discard)
	require.Same(t, first, p.console)

	_ = r2.Close()
	_, err := io.WriteString(w1, "exit\n")
	require.NoError(t, err)
	waitDead(t, p)
	waitConsoleStopped(t, p)
	require.NoError(t, w1.Close())
	_ = p.Shutdown(context.Background())
}
