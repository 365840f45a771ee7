package foreman

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Job is one unit of deferred work. A job takes no arguments and returns
// nothing; anything it captures must be safe to touch from another
// goroutine. Each accepted job is executed exactly once by exactly one
// worker.
type Job func()

// msgKind selects the message variant travelling through the job queue.
type msgKind int

const (
	// msgEmpty is the zero value. No sender ever produces it; it exists so
	// a zero message is recognizably "nothing" instead of a runnable job.
	msgEmpty msgKind = iota

	// msgWork wraps a submitted job.
	msgWork

	// msgTerminate tells exactly one worker to exit after the queue ahead
	// of it has drained.
	msgTerminate
)

type message struct {
	kind msgKind
	job  Job
}

// Pool is a fixed-size worker pool with centralized fault handling.
//
// Workers compete for messages on a single bounded queue. A supervisor
// goroutine watches two reporting channels and, on the first fatal signal,
// flips the pool's liveness flag, tells the operator console, and closes
// the halt channel that every worker selects on. The flag flips false to
// true exactly once and never back; a dead pool stays dead.
//
// Shutdown is the orderly path: one terminate message per worker, queued
// behind all previously accepted work, so the backlog drains before the
// workers leave. The fatal path skips the queue entirely.
type Pool struct {
	opts Options
	log  *zap.Logger

	jobs   chan message
	wg     sync.WaitGroup
	active atomic.Int32

	dead     atomic.Bool   // liveness flag, monotonic
	halt     chan struct{} // closed exactly once when the pool dies
	haltOnce sync.Once
	closing  atomic.Bool // serializes Shutdown

	sup *supervisor

	console     *console
	consoleOnce sync.Once
}

// New builds a pool with the given number of workers and default options.
// It panics if workers is less than one: a pool with no workers cannot
// make progress and refusing to build one is kinder than deadlocking
// the first submission.
func New(workers int) *Pool {
	return NewWithOptions(Options{Workers: workers})
}

// NewWithOptions builds a pool from opts. Workers must be positive; every
// other zero field gets a default. The workers and the supervisor's watcher
// are running when it returns.
func NewWithOptions(opts Options) *Pool {
	if opts.Workers < 1 {
		panic(fmt.Sprintf("foreman: worker count must be positive, got %d", opts.Workers))
	}
	opts.FillDefaults()
	p := &Pool{
		opts: opts,
		log:  opts.Logger.Named("pool"),
		jobs: make(chan message, opts.QueueSize),
		halt: make(chan struct{}),
	}
	p.sup = newSupervisor(p)
	for i := 0; i < opts.Workers; i++ {
		p.wg.Add(1)
		go p.runWorker(i)
	}
	go p.sup.watch()
	p.log.Info("pool started",
		zap.Int("workers", opts.Workers),
		zap.Int("queue_size", opts.QueueSize),
	)
	return p
}

// Submit hands one job to the pool. It never returns an error: a live pool
// queues the job, blocking while the queue is full, and a dead pool drops
// it. Drops are logged and counted, nothing more, so callers that race
// against shutdown need no special casing.
func (p *Pool) Submit(job Job) {
	if job == nil {
		p.log.Warn("nil job rejected")
		p.opts.Metrics.IncRejected()
		return
	}
	if p.IsDead() {
		p.log.Warn("job rejected, pool is dead")
		p.opts.Metrics.IncRejected()
		return
	}
	defer func() {
		if r := recover(); r != nil {
			// send on a closed queue means the plumbing itself is broken
			p.escalate(fmt.Sprintf("job queue send failed: %v", r))
			p.opts.Metrics.IncRejected()
		}
	}()
	select {
	case p.jobs <- message{kind: msgWork, job: job}:
		p.opts.Metrics.IncSubmitted()
	case <-p.halt:
		p.log.Warn("job rejected, pool died while enqueueing")
		p.opts.Metrics.IncRejected()
	}
}

// Report feeds a signal to the supervisor. Non-fatal signals are recorded
// and life goes on; a fatal signal shuts the whole pool down. This is the
// channel collaborators (and jobs themselves) use to surface faults.
func (p *Pool) Report(sig Signal) { p.sup.record(sig) }

// Shutdown drains and stops the pool: one terminate message per worker is
// queued behind the accepted backlog, then every worker is joined. On
// success the pool is dead and Shutdown returns nil.
//
// It returns ErrAlreadyDead if the pool is already dead or dying (a second
// Shutdown performs no sends), and ctx.Err() if the context expired while
// waiting for the workers; in that case the pool is left alive and Shutdown
// may be retried. A terminate that cannot be queued at all, because the
// queue is broken or ctx expires mid-send, is a fault: the pool is killed
// and Shutdown returns ErrShutdownAborted.
func (p *Pool) Shutdown(ctx context.Context) error {
	if !p.closing.CompareAndSwap(false, true) {
		return ErrAlreadyDead
	}
	if p.IsDead() {
		// fatal path got here first; workers are already unwinding
		return p.joinDead(ctx)
	}
	p.log.Info("terminating workers", zap.Int("workers", p.opts.Workers))
	if err := p.sendTerminates(ctx); err != nil {
		if errors.Is(err, ErrShutdownAborted) {
			// escalated to fatal; join what we can before handing back
			_ = p.awaitWorkers(ctx)
			_ = p.awaitWatcher(ctx)
			return err
		}
		// pool died mid-send; the fatal path owns the teardown now
		return p.joinDead(ctx)
	}
	if err := p.awaitWorkers(ctx); err != nil {
		p.closing.Store(false)
		return err
	}
	p.markDead()
	p.closeHalt()
	if err := p.awaitWatcher(ctx); err != nil {
		return err
	}
	p.log.Info("pool shut down cleanly")
	return nil
}

// Stop is Shutdown without a deadline.
func (p *Pool) Stop() { _ = p.Shutdown(context.Background()) }

// sendTerminates queues exactly one terminate per worker. A send that
// cannot complete is itself a fatal fault: it is escalated and the
// remaining sends are abandoned.
func (p *Pool) sendTerminates(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.escalate(fmt.Sprintf("terminate send failed: %v", r))
			err = ErrShutdownAborted
		}
	}()
	for i := 0; i < p.opts.Workers; i++ {
		select {
		case p.jobs <- message{kind: msgTerminate}:
		case <-p.halt:
			// pool died under us; the terminates are moot
			return ErrAlreadyDead
		case <-ctx.Done():
			p.escalate(fmt.Sprintf("terminate send timed out: %v", ctx.Err()))
			return fmt.Errorf("%w: %v", ErrShutdownAborted, ctx.Err())
		}
	}
	return nil
}

// joinDead waits out the fatal path's teardown: workers first, watcher
// second. On ctx expiry the teardown claim is released so a retry can
// finish the join.
func (p *Pool) joinDead(ctx context.Context) error {
	if err := p.awaitWorkers(ctx); err != nil {
		p.closing.Store(false)
		return err
	}
	if err := p.awaitWatcher(ctx); err != nil {
		p.closing.Store(false)
		return err
	}
	return ErrAlreadyDead
}

func (p *Pool) awaitWorkers(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.wg.Wait()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) awaitWatcher(ctx context.Context) error {
	select {
	case <-p.sup.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runWorker is the worker loop: block until a message or the halt
// broadcast arrives, never spin. After finishing a job it gives halt one
// extra look so a fatal raised mid-job beats whatever is still queued.
func (p *Pool) runWorker(id int) {
	defer p.wg.Done()
	log := p.log.With(zap.Int("worker", id))
	log.Debug("worker started")
	for {
		select {
		case msg, ok := <-p.jobs:
			if !ok {
				log.Warn("job queue closed, worker exiting")
				return
			}
			switch msg.kind {
			case msgWork:
				p.runJob(msg.job)
			case msgTerminate:
				log.Debug("worker terminating")
				return
			default:
				// msgEmpty: nothing to do
			}
			select {
			case <-p.halt:
				log.Debug("worker halting")
				return
			default:
			}
		case <-p.halt:
			log.Debug("worker halting")
			return
		}
	}
}

// runJob executes one job. A panicking job costs the pool nothing but a
// non-fatal signal; the worker lives on.
func (p *Pool) runJob(job Job) {
	p.active.Add(1)
	p.opts.Metrics.IncActive()
	defer func() {
		p.opts.Metrics.DecActive()
		p.active.Add(-1)
		if r := recover(); r != nil {
			p.sup.record(NonFatal(fmt.Sprintf("job panicked: %v", r)))
			return
		}
		p.opts.Metrics.IncExecuted()
	}()
	job()
}

// escalate records an infrastructure fault as fatal and flips the liveness
// flag directly instead of waiting for the watcher round-trip, so the very
// next Submit already sees a dead pool. The watcher still runs the fan-out.
func (p *Pool) escalate(reason string) {
	p.sup.record(Fatal(reason))
	p.markDead()
}

// markDead flips the liveness flag. The flag is monotonic: the first caller
// wins and every later call is a no-op.
func (p *Pool) markDead() bool {
	return p.dead.CompareAndSwap(false, true)
}

func (p *Pool) closeHalt() {
	p.haltOnce.Do(func() { close(p.halt) })
}

// IsDead reports whether the pool has died, by fatal signal or by clean
// shutdown. Once true it never flips back.
func (p *Pool) IsDead() bool { return p.dead.Load() }

// Done returns a channel closed when the pool dies. IsDead flips a moment
// before Done closes; waiters that need the worker broadcast should use
// Done, pollers can use IsDead.
func (p *Pool) Done() <-chan struct{} { return p.halt }

// Workers returns the fixed worker count the pool was built with.
func (p *Pool) Workers() int { return p.opts.Workers }

// ActiveWorkers returns how many workers are executing a job right now.
func (p *Pool) ActiveWorkers() int32 { return p.active.Load() }

// QueueLength returns the number of undelivered messages, terminates
// included.
func (p *Pool) QueueLength() int { return len(p.jobs) }
