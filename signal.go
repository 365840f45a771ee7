package foreman

// Severity classifies a Signal.
type Severity int

const (
	// SeverityNothing is the zero severity. It is a placeholder carried by
	// the zero Signal and is never produced by a real sender; the supervisor
	// ignores it.
	SeverityNothing Severity = iota

	// SeverityNonFatal marks a fault worth recording that does not threaten
	// the pool. Non-fatal signals are logged and counted, nothing else.
	SeverityNonFatal

	// SeverityFatal marks a terminal fault. The first fatal signal observed
	// by the supervisor shuts the entire pool down.
	SeverityFatal
)

// String returns the label used in logs and metrics.
func (s Severity) String() string {
	switch s {
	case SeverityNothing:
		return "nothing"
	case SeverityNonFatal:
		return "non-fatal"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Signal is one event on the pool's internal reporting channels: a severity
// plus a human-readable reason. Signals describe infrastructure faults, not
// job results; a job that wants to report failure does so by submitting a
// Signal through Pool.Report from inside its own body.
type Signal struct {
	Severity Severity
	Reason   string
}

// NonFatal builds a signal that will be logged and forgotten.
func NonFatal(reason string) Signal {
	return Signal{Severity: SeverityNonFatal, Reason: reason}
}

// Fatal builds a signal that kills the pool when it reaches the supervisor.
func Fatal(reason string) Signal {
	return Signal{Severity: SeverityFatal, Reason: reason}
}
