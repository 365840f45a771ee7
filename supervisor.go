package foreman

import (
	"go.uber.org/zap"
)

// supervisor owns the pool's reporting channels and runs the watcher
// goroutine that performs the shutdown fan-out.
//
// Routing is fixed:
//
//   - errs carries faults escalated by the pool's own plumbing
//   - commands carries operator-initiated signals from the console
//   - notify tells the console the pool is going away
//
// The watcher is the only reader of errs and commands, so no matter how
// many fatal signals race in, exactly one fan-out happens.
type supervisor struct {
	pool *Pool
	log  *zap.Logger

	errs     chan Signal
	commands chan Signal
	notify   chan Signal

	done chan struct{} // closed when the watcher exits
}

func newSupervisor(p *Pool) *supervisor {
	return &supervisor{
		pool:     p,
		log:      p.opts.Logger.Named("supervisor"),
		errs:     make(chan Signal, 1),
		commands: make(chan Signal, 1),
		notify:   make(chan Signal, 1),
		done:     make(chan struct{}),
	}
}

// record applies the severity policy to one signal. Non-fatal signals are
// logged and counted, nothing else. Fatal signals are additionally handed
// to the watcher. record never blocks: if the watcher already has a fatal
// pending, a second one teaches it nothing.
func (s *supervisor) record(sig Signal) {
	switch sig.Severity {
	case SeverityNonFatal:
		s.log.Warn("non-fatal error", zap.String("reason", sig.Reason))
		s.pool.opts.Metrics.IncSignal(SeverityNonFatal)
	case SeverityFatal:
		s.log.Error("fatal error", zap.String("reason", sig.Reason))
		s.pool.opts.Metrics.IncSignal(SeverityFatal)
		select {
		case s.errs <- sig:
		default:
		}
	default:
		// SeverityNothing carries no event
	}
}

// watch waits for the first fatal signal and performs the shutdown fan-out,
// then exits. A clean shutdown closes halt itself; the watcher notices and
// leaves after giving the console its notification.
func (s *supervisor) watch() {
	defer close(s.done)
	for {
		select {
		case sig := <-s.commands:
			if sig.Severity != SeverityFatal {
				s.log.Debug("ignoring command", zap.String("severity", sig.Severity.String()))
				continue
			}
			s.fanout(sig)
			return
		case sig := <-s.errs:
			if sig.Severity != SeverityFatal {
				continue
			}
			s.fanout(sig)
			return
		case <-s.pool.halt:
			s.notifyConsole(Fatal("pool shut down"))
			return
		}
	}
}

// fanout is the one place the pool dies on the fatal path. Order matters:
// flag first so new submissions start bouncing, console second so the
// operator prompt stops before its pool vanishes, worker broadcast last.
func (s *supervisor) fanout(sig Signal) {
	s.pool.markDead()
	s.notifyConsole(sig)
	s.pool.closeHalt()
	s.log.Info("pool shut down",
		zap.String("reason", sig.Reason),
		zap.Int("workers", s.pool.opts.Workers),
	)
}

func (s *supervisor) notifyConsole(sig Signal) {
	select {
	case s.notify <- sig:
	default: // console already told, or nobody is listening
	}
}
