package foreman

import (
	"sync/atomic"
)

// Metrics defines hooks used by the pool to report submission, execution
// and failure activity.
//
// Implementations must be safe for concurrent use.
// All methods are expected to be lightweight and non-blocking
type Metrics interface {

	// IncSubmitted increments the accepted jobs counter.
	IncSubmitted()

	// IncExecuted increments the executed jobs counter.
	IncExecuted()

	// IncRejected increments the rejected jobs counter.
	//
	// A rejection is a submission the pool dropped: dead pool,
	// nil job, or a queue send that could not complete.
	IncRejected()

	// IncSignal counts one reported signal by severity.
	IncSignal(sev Severity)

	// IncActive increments the currently-executing gauge.
	IncActive()

	// DecActive decrements the currently-executing gauge.
	DecActive()
}

// AtomicMetrics is a lock-free Metrics implementation backed by atomics.
//
// Writes are optimized for hot paths.
// Reads are intended for cold-path observation.
type AtomicMetrics struct {
	// submitted is the total number of jobs accepted into the queue.
	submitted atomic.Uint64

	_ [56]byte // padding to avoid false sharing

	// executed is the total number of jobs processed.
	executed atomic.Uint64

	_ [56]byte // padding to avoid false sharing

	// rejected is the total number of dropped submissions.
	rejected atomic.Uint64

	// fatal and nonFatal count reported signals by severity.
	fatal    atomic.Uint64
	nonFatal atomic.Uint64

	// active is the current number of jobs being executed.
	active atomic.Int64
}

// Submitted returns the total number of accepted jobs.
// Intended for cold-path observation.
func (m *AtomicMetrics) Submitted() uint64 {
	return m.submitted.Load()
}

// Executed returns the total number of executed jobs.
// Intended for cold-path observation.
func (m *AtomicMetrics) Executed() uint64 {
	return m.executed.Load()
}

// Rejected returns the total number of dropped submissions.
// Intended for cold-path observation.
func (m *AtomicMetrics) Rejected() uint64 {
	return m.rejected.Load()
}

// Signals returns the total number of recorded signals of the given
// severity. Intended for cold-path observation.
func (m *AtomicMetrics) Signals(sev Severity) uint64 {
	switch sev {
	case SeverityFatal:
		return m.fatal.Load()
	case SeverityNonFatal:
		return m.nonFatal.Load()
	default:
		return 0
	}
}

// Active returns the current number of executing jobs.
// Intended for cold-path observation.
func (m *AtomicMetrics) Active() int64 {
	return m.active.Load()
}

// IncSubmitted increments the accepted jobs counter by one.
func (m *AtomicMetrics) IncSubmitted() {
	m.submitted.Add(1)
}

// IncExecuted increments the executed jobs counter by one.
func (m *AtomicMetrics) IncExecuted() {
	m.executed.Add(1)
}

// IncRejected increments the rejected jobs counter by one.
func (m *AtomicMetrics) IncRejected() {
	m.rejected.Add(1)
}

// IncSignal counts one signal of the given severity.
func (m *AtomicMetrics) IncSignal(sev Severity) {
	switch sev {
	case SeverityFatal:
		m.fatal.Add(1)
	case SeverityNonFatal:
		m.nonFatal.Add(1)
	}
}

// IncActive increments the executing gauge by one.
func (m *AtomicMetrics) IncActive() {
	m.active.Add(1)
}

// DecActive decrements the executing gauge by one.
func (m *AtomicMetrics) DecActive() {
	m.active.Add(-1)
}

//------------- NoopMetrics ----------------------------------

// NoopMetrics is a Metrics implementation that discards all updates.
//
// It can be used when metrics collection is disabled and
// zero overhead is desired.
type NoopMetrics struct{}

func (m *NoopMetrics) IncSubmitted()          {}
func (m *NoopMetrics) IncExecuted()           {}
func (m *NoopMetrics) IncRejected()           {}
func (m *NoopMetrics) IncSignal(sev Severity) {}
func (m *NoopMetrics) IncActive()             {}
func (m *NoopMetrics) DecActive()             {}
