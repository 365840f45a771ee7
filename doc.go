// Package foreman provides a fixed-size worker pool with centralized
// fault handling, an operator console, and a connection-serving shell.
//
// Design goals
//
// The package is designed around the following principles:
//
//   - One liveness flag, flipped exactly once, never flipped back
//   - Workers block on channels; nothing polls on a timer
//   - Every fault funnels through one supervisor, fatal or not
//   - Orderly shutdown drains accepted work before workers leave
//
// Rather than maximizing raw throughput, foreman optimizes for a failure
// model that is easy to reason about: however a fault arrives, the pool
// reacts the same way, once.
//
// Architecture overview
//
// A pool is composed of four cooperating pieces:
//
//   1. Job queue
//      A single bounded channel of messages. Workers compete for
//      messages; whichever worker receives one owns it. A message is
//      either a job or a terminate order.
//
//   2. Workers
//      A fixed number of goroutines, decided at construction and never
//      resized. Each blocks on the queue and on the halt broadcast,
//      runs jobs to completion, and exits on a terminate message, on
//      halt, or on a closed queue.
//
//   3. Supervisor
//      The single reader of the pool's reporting channels. Non-fatal
//      signals are logged and counted. The first fatal signal triggers
//      the shutdown fan-out: liveness flag, console notification, halt
//      broadcast, in that order, exactly once.
//
//   4. Console
//      An optional operator loop reading lines from an input stream.
//      The shutdown keyword becomes a fatal signal on the supervisor's
//      command channel; everything else is ignored.
//
// Failure model
//
// The pool distinguishes two classes of faults:
//
//   - Non-fatal: recorded and forgotten. A panicking job or connection
//     handler is non-fatal; the worker survives it.
//   - Fatal: the pool dies. Operator shutdown, a failed queue send, and
//     a hard listener error are all fatal.
//
// Death is monotonic. IsDead never reads true and later false, no matter
// how many fatal signals race, and the worker broadcast happens once.
// A dead pool silently drops every later submission, so callers racing
// against shutdown need no special handling.
//
// Shutdown paths
//
// There are two ways down, deliberately different:
//
//   - Shutdown queues one terminate message per worker behind all
//     previously accepted jobs, so the backlog drains first, then joins
//     every worker before returning.
//   - A fatal signal skips the queue: the halt channel closes and each
//     worker exits at its next select, abandoning whatever is queued.
//
// Calling Shutdown on an already dead pool sends nothing and reports
// ErrAlreadyDead.
//
// Serving
//
// Server ties a pool to a net.Listener: each accepted connection becomes
// one job. Temporary accept errors are retried with backoff, a permanent
// one is escalated to a fatal signal, and a dying pool closes the
// listener so the accept loop cannot outlive it.
//
// Intended use cases
//
// foreman is well suited for:
//
//   - Long-running daemons that must fail closed, not limp along
//   - Connection-per-job network services
//   - Workloads where an operator needs a kill switch
//
// It is not a general-purpose goroutine replacement: the pool trades
// elasticity for a worker count that is fixed and a failure story that
// is small enough to hold in your head.
package foreman
