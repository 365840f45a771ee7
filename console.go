package foreman

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ShutdownKeyword is the operator command that kills the pool. Matching is
// exact after trimming surrounding whitespace: "exit" works, "EXIT" and
// "exit now" do not.
const ShutdownKeyword = "exit"

// console is the operator input loop. It prompts, reads one line at a
// time, and turns the shutdown keyword into a fatal signal on the
// supervisor's command channel. Everything else is ignored.
//
// The read is deliberately blocking: a fatal raised elsewhere is noticed
// between lines, not during one. An idle console therefore lingers until
// the operator hits enter, which is a fair trade for never burning a
// poll loop on a quiet stdin.
type console struct {
	pool *Pool
	log  *zap.Logger
	in   *bufio.Reader
	out  io.Writer
	done chan struct{} // closed when the loop exits
}

// ServeConsole starts the operator console reading from in and prompting
// on out. Only the first call does anything; the console stops by itself
// once the pool dies. A nil out discards prompts.
//
// The pool never joins the console: a loop stuck in a read would hold
// Shutdown hostage, so teardown tells it to stop and moves on.
func (p *Pool) ServeConsole(in io.Reader, out io.Writer) {
	if in == nil {
		return
	}
	p.consoleOnce.Do(func() {
		if out == nil {
			out = io.Discard
		}
		c := &console{
			pool: p,
			log:  p.opts.Logger.Named("console"),
			in:   bufio.NewReader(in),
			out:  out,
			done: make(chan struct{}),
		}
		p.console = c
		go c.run()
	})
}

func (c *console) run() {
	defer close(c.done)
	c.log.Info("console started", zap.String("keyword", ShutdownKeyword))
	for {
		// a shutdown raised anywhere else silences the prompt before the
		// next read, never during one
		select {
		case sig := <-c.pool.sup.notify:
			c.log.Info("pool is shutting down, console closing",
				zap.String("reason", sig.Reason))
			return
		case <-c.pool.halt:
			c.log.Info("pool has died, console closing")
			return
		default:
		}
		if c.pool.IsDead() {
			c.log.Info("pool has died, console closing")
			return
		}

		fmt.Fprint(c.out, "> ")
		line, err := c.in.ReadString('\n')
		if strings.TrimSpace(line) == ShutdownKeyword {
			fmt.Fprintln(c.out, "shutting down")
			c.log.Info("operator requested shutdown")
			c.requestShutdown()
		}
		if err != nil {
			// the operator stream is gone for good; hold the line quietly
			// until the pool dies so the notification is not lost
			c.log.Warn("console input closed", zap.Error(err))
			select {
			case <-c.pool.sup.notify:
			case <-c.pool.halt:
			}
			return
		}
		time.Sleep(c.pool.opts.PollInterval)
	}
}

// requestShutdown routes the operator command through the supervisor and
// flips the liveness flag on the spot, so the loop stops prompting without
// waiting for the fan-out to come back around.
func (c *console) requestShutdown() {
	sig := Fatal(`operator typed "` + ShutdownKeyword + `"`)
	select {
	case c.pool.sup.commands <- sig:
	case <-c.pool.halt:
	}
	c.pool.markDead()
}
