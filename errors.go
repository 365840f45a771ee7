package foreman

import "errors"

var (
	// ErrAlreadyDead is returned by Shutdown when the pool was already dead,
	// whether from an earlier Shutdown or from a fatal signal. No termination
	// messages are sent in that case.
	ErrAlreadyDead = errors.New("foreman: pool is already dead")

	// ErrShutdownAborted is returned by Shutdown when a termination message
	// could not be delivered. The failure is escalated to a fatal signal, so
	// the pool still ends up dead, just not through the drain path.
	ErrShutdownAborted = errors.New("foreman: shutdown aborted by send failure")

	// ErrServerClosed is returned by Server.Serve after the listener closes
	// or the pool backing it dies.
	ErrServerClosed = errors.New("foreman: server closed")
)
